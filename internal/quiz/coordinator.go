// Package quiz runs the Quizspire lobbies: room membership, host
// control, question rounds with an answer barrier, scoring and win
// conditions.
//
// Like the match engine, the coordinator serializes everything behind
// one mutex. Timer callbacks re-acquire it and re-check that the lobby
// is still alive, still playing and still on the same question index
// before acting. Deck reads hit Postgres, so they run with the lock
// released and the lobby parked in StatusStarting.
package quiz

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/quizspire/quizspire-server/internal/auth"
	"github.com/quizspire/quizspire-server/internal/deck"
	"github.com/quizspire/quizspire-server/internal/msgcat"
	"github.com/quizspire/quizspire-server/internal/notify"
	"github.com/quizspire/quizspire-server/internal/obslog"
	"github.com/quizspire/quizspire-server/internal/sched"
	"github.com/quizspire/quizspire-server/internal/stats"
	"github.com/quizspire/quizspire-server/pkg/rtproto"
)

type Coordinator struct {
	clock      clockwork.Clock
	decks      deck.Repository
	stats      *stats.Store
	notify     *notify.Dispatcher
	cat        *msgcat.Catalog
	maxPlayers int

	mu        sync.Mutex
	lobbies   map[string]*Lobby // code -> lobby
	byChannel map[string]*Lobby // channel id -> lobby
}

func NewCoordinator(clock clockwork.Clock, decks deck.Repository, st *stats.Store, nd *notify.Dispatcher, cat *msgcat.Catalog, maxPlayers int) *Coordinator {
	return &Coordinator{
		clock:      clock,
		decks:      decks,
		stats:      st,
		notify:     nd,
		cat:        cat,
		maxPlayers: maxPlayers,
		lobbies:    make(map[string]*Lobby),
		byChannel:  make(map[string]*Lobby),
	}
}

// CreateLobby opens a new room for one of the caller's decks. Guests
// cannot create lobbies because deck ownership requires an account.
func (c *Coordinator) CreateLobby(ctx context.Context, ident *auth.Identity, ch Sender, deckID string, settings rtproto.Settings) {
	if ident.Guest {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.auth_required")})
		return
	}
	if _, err := c.decks.GetDeck(ctx, deckID, ident.UserID); err != nil {
		if err != deck.ErrNotFound {
			obslog.L().Error("quiz_deck_lookup_error", zap.String("deck_id", deckID), zap.Error(err))
		}
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.deck_not_found")})
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaveCurrentLobbyLocked(ch)
	code, err := c.genCodeLocked()
	if err != nil {
		obslog.L().Error("quiz_code_gen_error", zap.Error(err))
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_not_found")})
		return
	}
	host := &Player{UserID: ident.UserID, Username: ident.Username, Ch: ch}
	lb := &Lobby{
		Code:     code,
		Host:     host,
		DeckID:   deckID,
		Settings: settingsFromProto(settings),
		Status:   StatusWaiting,
	}
	if lb.Settings.HostParticipates {
		lb.Players = append(lb.Players, host)
	}
	c.lobbies[code] = lb
	c.byChannel[ch.ID()] = lb

	ch.Send(rtproto.EvLobbyCreated, rtproto.LobbyCreated{Code: code})
	c.broadcastLobbyLocked(lb)
	obslog.L().Info("quiz_lobby_create",
		zap.String("code", code),
		zap.String("host", ident.UserID),
		zap.String("deck_id", deckID))
}

// JoinLobby adds the caller to the room with the given code. Guests may
// pick a display name; authenticated users keep their account name.
func (c *Coordinator) JoinLobby(ident *auth.Identity, ch Sender, code, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lb := c.lobbies[code]
	if lb == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_not_found")})
		return
	}
	switch lb.Status {
	case StatusWaiting:
	case StatusPlaying:
		if !lb.Settings.AllowLateJoin {
			ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_in_progress")})
			return
		}
	case StatusEnded:
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_ended")})
		return
	default:
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_in_progress")})
		return
	}
	if len(lb.Players) >= c.maxPlayers {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_full")})
		return
	}
	if lb.memberByUser(ident.UserID) != nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.already_in_lobby")})
		return
	}

	c.leaveCurrentLobbyLocked(ch)

	name := ident.Username
	if ident.Guest && username != "" {
		name = username
	}
	p := &Player{UserID: ident.UserID, Username: name, Guest: ident.Guest, Ch: ch}
	lb.Players = append(lb.Players, p)
	c.byChannel[ch.ID()] = lb

	ch.Send(rtproto.EvLobbyJoined, rtproto.LobbyJoined{Code: code})
	c.broadcastLobbyLocked(lb)
	obslog.L().Info("quiz_lobby_join",
		zap.String("code", code),
		zap.String("user_id", p.UserID),
		zap.Bool("guest", p.Guest))

	// Late joiners get the open question so their client can render it.
	if lb.Status == StatusPlaying && lb.Game != nil && lb.Game.awaiting {
		g := lb.Game
		remaining := lb.Settings.QuestionTimeLimit - int(c.clock.Since(g.StartedAt).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		q := g.Questions[g.Index]
		ch.Send(rtproto.EvQuestion, rtproto.Question{
			QuestionIndex: g.Index,
			Question:      q.Prompt,
			Options:       q.Options,
			TimeLimit:     remaining,
		})
	}
}

// StartGame begins the first run of questions. Host only, waiting
// lobbies only. A settings object on the start request replaces the
// lobby settings before the game begins.
func (c *Coordinator) StartGame(ctx context.Context, ch Sender, settings *rtproto.Settings) {
	c.launchGame(ctx, ch, settings, false)
}

// RestartGame replays the same deck after a finished game with fresh
// questions and zeroed scores. Host only.
func (c *Coordinator) RestartGame(ctx context.Context, ch Sender) {
	c.launchGame(ctx, ch, nil, true)
}

func (c *Coordinator) launchGame(ctx context.Context, ch Sender, settings *rtproto.Settings, restart bool) {
	c.mu.Lock()
	lb := c.byChannel[ch.ID()]
	if lb == nil {
		c.mu.Unlock()
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_not_found")})
		return
	}
	if lb.Host == nil || lb.Host.Ch.ID() != ch.ID() {
		c.mu.Unlock()
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.host_only")})
		return
	}
	if restart {
		if lb.Status != StatusEnded {
			c.mu.Unlock()
			ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.restart_not_ended")})
			return
		}
	} else if lb.Status != StatusWaiting {
		c.mu.Unlock()
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_in_progress")})
		return
	}
	if settings != nil {
		lb.Settings = settingsFromProto(*settings)
	}
	lb.Status = StatusStarting
	code, deckID, hostID := lb.Code, lb.DeckID, lb.Host.UserID
	c.mu.Unlock()

	d, err := c.decks.GetDeck(ctx, deckID, hostID)

	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.lobbies[code]
	if cur != lb || lb.Status != StatusStarting {
		return // lobby died or changed while the deck loaded
	}
	if err != nil {
		if err != deck.ErrNotFound {
			obslog.L().Error("quiz_deck_lookup_error", zap.String("deck_id", deckID), zap.Error(err))
		}
		lb.Status = statusAfterFailedLaunch(restart)
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.deck_not_found")})
		return
	}
	if len(d.Cards) == 0 {
		lb.Status = statusAfterFailedLaunch(restart)
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.deck_empty")})
		return
	}

	if restart {
		for _, p := range lb.Players {
			p.Score = 0
			p.Correct = 0
		}
	}
	lb.Game = &Game{
		Questions: GenerateQuestions(d),
		answers:   make(map[string]answerRecord),
		timer:     sched.NewSlot(c.clock),
	}
	lb.Status = StatusPlaying
	c.broadcastLobbyLocked(lb)
	obslog.L().Info("quiz_game_start",
		zap.String("code", lb.Code),
		zap.Int("questions", len(lb.Game.Questions)),
		zap.Int("players", len(lb.Players)),
		zap.Bool("restart", restart))
	c.notify.Dispatch("quiz_game_started", map[string]any{
		"code": lb.Code, "players": len(lb.Players),
	})
	c.startQuestionLocked(lb)
}

func statusAfterFailedLaunch(restart bool) Status {
	if restart {
		return StatusEnded
	}
	return StatusWaiting
}

func (c *Coordinator) startQuestionLocked(lb *Lobby) {
	g := lb.Game
	g.StartedAt = c.clock.Now()
	g.answers = make(map[string]answerRecord)
	g.awaiting = true
	q := g.Questions[g.Index]
	c.broadcastLocked(lb, rtproto.EvQuestion, rtproto.Question{
		QuestionIndex: g.Index,
		Question:      q.Prompt,
		Options:       q.Options,
		TimeLimit:     lb.Settings.QuestionTimeLimit,
	})
	obslog.L().Debug("quiz_question_start",
		zap.String("code", lb.Code),
		zap.Int("index", g.Index))

	code, idx := lb.Code, g.Index
	g.timer.Replace(time.Duration(lb.Settings.QuestionTimeLimit)*time.Second, func() {
		c.questionTimeout(code, idx)
	})
}

func (c *Coordinator) questionTimeout(code string, qIdx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lb := c.lobbies[code]
	if lb == nil || lb.Status != StatusPlaying || lb.Game == nil {
		return
	}
	g := lb.Game
	if g.Index != qIdx || !g.awaiting {
		return
	}
	for _, p := range lb.Players {
		if _, ok := g.answers[p.UserID]; !ok {
			g.answers[p.UserID] = answerRecord{SelectedIndex: -1}
		}
	}
	c.finishQuestionLocked(lb)
}

// SubmitAnswer scores one player's answer to the open question. A
// correct answer earns 100 points plus 10 per unspent second.
func (c *Coordinator) SubmitAnswer(ch Sender, selectedIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lb := c.byChannel[ch.ID()]
	if lb == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_not_found")})
		return
	}
	if lb.Status != StatusPlaying || lb.Game == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.no_active_game")})
		return
	}
	p := lb.playerByChannel(ch.ID())
	if p == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.not_participant")})
		return
	}
	g := lb.Game
	if !g.awaiting {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.question_closed")})
		return
	}
	if _, dup := g.answers[p.UserID]; dup {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.already_answered")})
		return
	}
	if selectedIndex < 0 || selectedIndex >= optionCount {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.answer_out_of_range")})
		return
	}

	elapsed := c.clock.Since(g.StartedAt).Seconds()
	q := g.Questions[g.Index]
	rec := answerRecord{SelectedIndex: selectedIndex, Elapsed: elapsed}
	if selectedIndex == q.CorrectIndex {
		rec.Correct = true
		bonus := float64(lb.Settings.QuestionTimeLimit) - elapsed
		if bonus < 0 {
			bonus = 0
		}
		rec.Points = 100 + int(math.Floor(bonus*10))
		p.Score += rec.Points
		p.Correct++
	} else if lb.Settings.ResetOnIncorrect {
		p.Correct = 0
	}
	g.answers[p.UserID] = rec

	p.Ch.Send(rtproto.EvAnswerFeedback, rtproto.AnswerFeedback{
		IsCorrect:     rec.Correct,
		PointsGained:  rec.Points,
		CorrectIndex:  q.CorrectIndex,
		SelectedIndex: selectedIndex,
	})
	obslog.L().Debug("quiz_answer",
		zap.String("code", lb.Code),
		zap.String("user_id", p.UserID),
		zap.Bool("correct", rec.Correct),
		zap.Int("points", rec.Points))

	if c.allAnsweredLocked(lb) {
		g.timer.Stop()
		c.finishQuestionLocked(lb)
	}
}

func (c *Coordinator) allAnsweredLocked(lb *Lobby) bool {
	g := lb.Game
	if g == nil || !g.awaiting || len(lb.Players) == 0 {
		return false
	}
	for _, p := range lb.Players {
		if _, ok := g.answers[p.UserID]; !ok {
			return false
		}
	}
	return true
}

// finishQuestionLocked closes the round, publishes per-player results
// and the leaderboard, then schedules the advance to the next question.
func (c *Coordinator) finishQuestionLocked(lb *Lobby) {
	g := lb.Game
	g.awaiting = false
	q := g.Questions[g.Index]

	results := make([]rtproto.PlayerResult, 0, len(lb.Players))
	for _, p := range lb.Players {
		rec, ok := g.answers[p.UserID]
		if !ok {
			rec = answerRecord{SelectedIndex: -1}
		}
		pr := rtproto.PlayerResult{
			UserID:        p.UserID,
			Username:      p.Username,
			SelectedIndex: rec.SelectedIndex,
			IsCorrect:     rec.Correct,
			Score:         p.Score,
		}
		if rec.SelectedIndex >= 0 {
			e := rec.Elapsed
			pr.TimeElapsed = &e
		}
		results = append(results, pr)
	}
	c.broadcastLocked(lb, rtproto.EvQuestionResults, rtproto.QuestionResults{
		QuestionIndex: g.Index,
		CorrectIndex:  q.CorrectIndex,
		Results:       results,
	})
	c.broadcastLocked(lb, rtproto.EvLeaderboardUpdate, rtproto.LeaderboardUpdate{
		Leaderboard:  c.leaderboardLocked(lb, false),
		WinCondition: string(lb.Settings.WinCondition),
		Threshold:    lb.Settings.Threshold,
	})

	code, idx := lb.Code, g.Index
	g.timer.Replace(resultsDelay, func() { c.advance(code, idx) })
}

func (c *Coordinator) advance(code string, fromIdx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lb := c.lobbies[code]
	if lb == nil || lb.Status != StatusPlaying || lb.Game == nil {
		return
	}
	g := lb.Game
	if g.Index != fromIdx || g.awaiting {
		return
	}
	g.Index++
	if g.Index >= len(g.Questions) {
		c.endGameLocked(lb, "all_questions_completed")
		return
	}
	switch lb.Settings.WinCondition {
	case WinCorrect:
		if lb.Settings.Threshold > 0 && c.anyReachedLocked(lb, func(p *Player) int { return p.Correct }) {
			c.endGameLocked(lb, "correct_answers_threshold_reached")
			return
		}
	case WinScore:
		if lb.Settings.Threshold > 0 && c.anyReachedLocked(lb, func(p *Player) int { return p.Score }) {
			c.endGameLocked(lb, "score_threshold_reached")
			return
		}
	}
	c.startQuestionLocked(lb)
}

func (c *Coordinator) anyReachedLocked(lb *Lobby, metric func(*Player) int) bool {
	for _, p := range lb.Players {
		if metric(p) >= lb.Settings.Threshold {
			return true
		}
	}
	return false
}

func (c *Coordinator) endGameLocked(lb *Lobby, reason string) {
	g := lb.Game
	g.timer.Stop()
	lb.Status = StatusEnded
	lb.Game = nil

	byCorrect := lb.Settings.WinCondition == WinCorrect
	standings := c.leaderboardLocked(lb, byCorrect)
	var winner *rtproto.LeaderboardEntry
	if len(standings) > 0 {
		w := standings[0]
		winner = &w
	}
	c.broadcastLocked(lb, rtproto.EvGameEnded, rtproto.GameEnded{
		Reason:      reason,
		FinalScores: standings,
		Winner:      winner,
	})
	c.broadcastLobbyLocked(lb)
	obslog.L().Info("quiz_game_end",
		zap.String("code", lb.Code),
		zap.String("reason", reason),
		zap.Int("players", len(lb.Players)))
	c.notify.Dispatch("quiz_game_finished", map[string]any{
		"code": lb.Code, "reason": reason,
	})

	if c.stats != nil {
		for _, p := range lb.Players {
			if p.Guest {
				continue
			}
			go func(userID, username string, score int) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := c.stats.RecordQuizScore(ctx, userID, username, score); err != nil {
					obslog.L().Warn("quiz_stats_error", zap.String("user_id", userID), zap.Error(err))
				}
			}(p.UserID, p.Username, p.Score)
		}
	}
}

// leaderboardLocked returns players sorted best-first, by correct count
// when byCorrect is set and by score otherwise. Ties break toward the
// other metric, then join order.
func (c *Coordinator) leaderboardLocked(lb *Lobby, byCorrect bool) []rtproto.LeaderboardEntry {
	ordered := append([]*Player(nil), lb.Players...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if byCorrect {
			if a.Correct != b.Correct {
				return a.Correct > b.Correct
			}
			return a.Score > b.Score
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Correct > b.Correct
	})
	out := make([]rtproto.LeaderboardEntry, 0, len(ordered))
	for _, p := range ordered {
		out = append(out, rtproto.LeaderboardEntry{
			UserID:         p.UserID,
			Username:       p.Username,
			Score:          p.Score,
			CorrectAnswers: p.Correct,
		})
	}
	return out
}

// LeaveLobby removes the caller from their lobby.
func (c *Coordinator) LeaveLobby(ch Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lb := c.byChannel[ch.ID()]
	if lb == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_not_found")})
		return
	}
	p := lb.memberByChannel(ch.ID())
	if p == nil {
		return
	}
	obslog.L().Info("quiz_lobby_leave", zap.String("code", lb.Code), zap.String("user_id", p.UserID))
	c.removeLocked(lb, p)
}

// Disconnect handles a transport channel going away. Same effect as an
// explicit leave, silent when the channel was never in a lobby.
func (c *Coordinator) Disconnect(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lb := c.byChannel[channelID]
	if lb == nil {
		return
	}
	p := lb.memberByChannel(channelID)
	if p == nil {
		return
	}
	obslog.L().Info("quiz_disconnect", zap.String("code", lb.Code), zap.String("user_id", p.UserID))
	c.removeLocked(lb, p)
}

// KickPlayer removes a player by id. Host only; the host cannot kick
// themself.
func (c *Coordinator) KickPlayer(ch Sender, targetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lb := c.byChannel[ch.ID()]
	if lb == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.lobby_not_found")})
		return
	}
	if lb.Host == nil || lb.Host.Ch.ID() != ch.ID() {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.host_only")})
		return
	}
	if targetID == lb.Host.UserID {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.kick_host")})
		return
	}
	target := lb.playerByUser(targetID)
	if target == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("quiz.kick_not_member")})
		return
	}
	target.Ch.Send(rtproto.EvKicked, rtproto.Kicked{Reason: c.cat.Text("quiz.kicked_by_host")})
	obslog.L().Info("quiz_kick",
		zap.String("code", lb.Code),
		zap.String("host", lb.Host.UserID),
		zap.String("target", targetID))
	c.removeLocked(lb, target)
}

// leaveCurrentLobbyLocked drops the channel's existing membership, if
// any. A channel belongs to at most one lobby, so entering a new one
// implicitly leaves the previous one.
func (c *Coordinator) leaveCurrentLobbyLocked(ch Sender) {
	prev := c.byChannel[ch.ID()]
	if prev == nil {
		return
	}
	if m := prev.memberByChannel(ch.ID()); m != nil {
		obslog.L().Info("quiz_lobby_switch",
			zap.String("code", prev.Code),
			zap.String("user_id", m.UserID))
		c.removeLocked(prev, m)
		return
	}
	delete(c.byChannel, ch.ID())
}

// removeLocked takes one member out of the lobby, migrates the host
// role when needed, deletes an emptied lobby, and re-checks the answer
// barrier when a departure completes the open round.
func (c *Coordinator) removeLocked(lb *Lobby, leaver *Player) {
	wasHost := lb.Host != nil && lb.Host.UserID == leaver.UserID
	for i, p := range lb.Players {
		if p == leaver {
			lb.Players = append(lb.Players[:i], lb.Players[i+1:]...)
			break
		}
	}
	delete(c.byChannel, leaver.Ch.ID())
	if wasHost {
		lb.Host = nil
		if len(lb.Players) > 0 {
			lb.Host = lb.Players[0]
			obslog.L().Info("quiz_host_migrate",
				zap.String("code", lb.Code),
				zap.String("new_host", lb.Host.UserID))
		}
	}
	if lb.Host == nil && len(lb.Players) == 0 {
		c.deleteLobbyLocked(lb)
		return
	}

	if lb.Status == StatusPlaying && lb.Game != nil {
		delete(lb.Game.answers, leaver.UserID)
		if c.allAnsweredLocked(lb) {
			lb.Game.timer.Stop()
			c.finishQuestionLocked(lb)
		}
	}
	c.broadcastLobbyLocked(lb)
}

func (c *Coordinator) deleteLobbyLocked(lb *Lobby) {
	if lb.Game != nil {
		lb.Game.timer.Stop()
		lb.Game = nil
	}
	delete(c.lobbies, lb.Code)
	obslog.L().Info("quiz_lobby_delete", zap.String("code", lb.Code))
}

func (c *Coordinator) broadcastLocked(lb *Lobby, event string, payload any) {
	for _, p := range lb.members() {
		p.Ch.Send(event, payload)
	}
}

func (c *Coordinator) broadcastLobbyLocked(lb *Lobby) {
	players := make([]rtproto.LobbyPlayer, 0, len(lb.Players)+1)
	for _, p := range lb.members() {
		players = append(players, rtproto.LobbyPlayer{
			UserID:         p.UserID,
			Username:       p.Username,
			IsHost:         lb.Host != nil && p.UserID == lb.Host.UserID,
			Score:          p.Score,
			CorrectAnswers: p.Correct,
		})
	}
	c.broadcastLocked(lb, rtproto.EvLobbyUpdate, rtproto.LobbyUpdate{
		Code:     lb.Code,
		Players:  players,
		Status:   string(lb.Status),
		DeckID:   lb.DeckID,
		Settings: lb.Settings.toProto(),
	})
}

// genCodeLocked draws an unused 6-digit room code.
func (c *Coordinator) genCodeLocked() (string, error) {
	for attempt := 0; attempt < 32; attempt++ {
		n, err := crand.Int(crand.Reader, big.NewInt(900000))
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("%06d", n.Int64()+100000)
		if _, taken := c.lobbies[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free lobby code after 32 attempts")
}
