// Package match runs the two-player timed chess sessions: the
// matchmaking queue, the clock-bidding window, and the turn engine.
//
// The coordinator serializes all session mutation behind one mutex.
// Timer callbacks fire on the clock's goroutine, re-acquire the mutex
// and re-check that their session is still alive and in the expected
// phase before touching anything, so a stale callback from a replaced
// timer can never corrupt state.
package match

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/quizspire/quizspire-server/internal/msgcat"
	"github.com/quizspire/quizspire-server/internal/notify"
	"github.com/quizspire/quizspire-server/internal/obslog"
	"github.com/quizspire/quizspire-server/internal/sched"
	"github.com/quizspire/quizspire-server/internal/stats"
	"github.com/quizspire/quizspire-server/pkg/rtproto"
)

type Coordinator struct {
	clock  clockwork.Clock
	stats  *stats.Store
	notify *notify.Dispatcher
	cat    *msgcat.Catalog

	mu        sync.Mutex
	queue     []*Player
	sessions  map[string]*Session // session id -> session
	byChannel map[string]*Session // channel id -> session
}

func NewCoordinator(clock clockwork.Clock, st *stats.Store, nd *notify.Dispatcher, cat *msgcat.Catalog) *Coordinator {
	return &Coordinator{
		clock:     clock,
		stats:     st,
		notify:    nd,
		cat:       cat,
		sessions:  make(map[string]*Session),
		byChannel: make(map[string]*Session),
	}
}

// Enqueue places a newly connected player on the matchmaking queue, or
// pairs them immediately when an opponent is already waiting.
func (c *Coordinator) Enqueue(userID, name string, ch Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enqueueLocked(&Player{UserID: userID, Name: name, Ch: ch})
}

func (c *Coordinator) enqueueLocked(p *Player) {
	// A second connection from the same account must not pair against
	// itself; it waits for a distinct opponent.
	for i, q := range c.queue {
		if q.UserID == p.UserID {
			continue
		}
		c.queue = append(c.queue[:i], c.queue[i+1:]...)
		c.pairLocked(q, p)
		return
	}
	c.queue = append(c.queue, p)
	p.Ch.Send(rtproto.EvWaiting, rtproto.Waiting{Message: c.cat.Text("chess.waiting")})
	obslog.L().Info("match_enqueue", zap.String("user_id", p.UserID), zap.String("channel", p.Ch.ID()))
}

func (c *Coordinator) pairLocked(a, b *Player) {
	white, black := a, b
	if coinFlip() {
		white, black = b, a
	}
	s := &Session{
		ID:          fmt.Sprintf("match-%d-%s", c.clock.Now().UnixNano(), randSuffix(3)),
		White:       white,
		Black:       black,
		Phase:       PhaseBidding,
		BidTimeLeft: biddingWindowSeconds,
		pos:         NewPosition(),
		turnTimer:   sched.NewSlot(c.clock),
		bidTimer:    sched.NewSlot(c.clock),
	}
	c.sessions[s.ID] = s
	c.byChannel[white.Ch.ID()] = s
	c.byChannel[black.Ch.ID()] = s

	white.Ch.Send(rtproto.EvPaired, rtproto.Paired{Opponent: black.Name})
	black.Ch.Send(rtproto.EvPaired, rtproto.Paired{Opponent: white.Name})
	obslog.L().Info("match_paired",
		zap.String("session_id", s.ID),
		zap.String("white", white.UserID),
		zap.String("black", black.UserID))
	c.notify.Dispatch("match_created", map[string]string{
		"sessionId": s.ID,
		"white":     white.UserID,
		"black":     black.UserID,
	})

	id := s.ID
	s.bidTimer.Replace(time.Second, func() { c.bidTick(id) })
}

func (c *Coordinator) bidTick(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessions[sessionID]
	if s == nil || s.Phase != PhaseBidding {
		return
	}
	s.BidTimeLeft--
	c.broadcastLocked(s, rtproto.EvBiddingTimeUpdate, rtproto.BiddingTimeUpdate{TimeLeft: s.BidTimeLeft})
	if s.BidTimeLeft > 0 {
		s.bidTimer.Replace(time.Second, func() { c.bidTick(sessionID) })
		return
	}
	c.resolveBidsLocked(s)
}

// SubmitBid records one player's clock bid. The second of the two bids
// resolves the window early.
func (c *Coordinator) SubmitBid(ch Sender, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.byChannel[ch.ID()]
	if s == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.no_session")})
		return
	}
	p, _ := s.playerByChannel(ch.ID())
	if s.Phase != PhaseBidding {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.bid_not_open")})
		return
	}
	if p.Bid != 0 {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.bid_already_submitted")})
		return
	}
	secs := int(math.Floor(seconds))
	if secs < minBidSeconds {
		msg, err := c.cat.Render("chess.bid_too_low", map[string]any{"Floor": minBidSeconds})
		if err != nil {
			msg = c.cat.Text("chess.bid_too_low")
		}
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: msg})
		return
	}
	p.Bid = secs
	obslog.L().Info("match_bid",
		zap.String("session_id", s.ID),
		zap.String("user_id", p.UserID),
		zap.Int("bid", secs))
	if s.White.Bid != 0 && s.Black.Bid != 0 {
		c.resolveBidsLocked(s)
	}
}

// resolveBidsLocked ends the bidding phase: unbid players default to
// 120 seconds, the shared clock is the lower bid clamped to the floor.
func (c *Coordinator) resolveBidsLocked(s *Session) {
	s.bidTimer.Stop()
	wb, bb := s.White.Bid, s.Black.Bid
	if wb == 0 {
		wb = defaultBidSeconds
	}
	if bb == 0 {
		bb = defaultBidSeconds
	}
	clockSecs := wb
	if bb < clockSecs {
		clockSecs = bb
	}
	if clockSecs < minBidSeconds {
		clockSecs = minBidSeconds
	}
	s.WhiteTime = clockSecs
	s.BlackTime = clockSecs
	s.Phase = PhasePlaying

	fen := s.pos.FEN()
	s.White.Ch.Send(rtproto.EvStart, rtproto.Start{
		FEN: fen, YourColor: string(White), Opponent: s.Black.Name,
		Time: clockSecs, WhiteTime: s.WhiteTime, BlackTime: s.BlackTime,
	})
	s.Black.Ch.Send(rtproto.EvStart, rtproto.Start{
		FEN: fen, YourColor: string(Black), Opponent: s.White.Name,
		Time: clockSecs, WhiteTime: s.WhiteTime, BlackTime: s.BlackTime,
	})
	obslog.L().Info("match_start",
		zap.String("session_id", s.ID),
		zap.Int("clock_seconds", clockSecs),
		zap.Int("white_bid", s.White.Bid),
		zap.Int("black_bid", s.Black.Bid))
	c.armTurnLocked(s, White)
}

func (c *Coordinator) armTurnLocked(s *Session, onClock Color) {
	s.OnClock = onClock
	id := s.ID
	s.turnTimer.Replace(time.Second, func() { c.turnTick(id) })
}

func (c *Coordinator) turnTick(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessions[sessionID]
	if s == nil || s.Phase != PhasePlaying {
		return
	}
	var remaining int
	if s.OnClock == White {
		s.WhiteTime--
		remaining = s.WhiteTime
	} else {
		s.BlackTime--
		remaining = s.BlackTime
	}
	c.broadcastLocked(s, rtproto.EvTimeUpdate, rtproto.TimeUpdate{WhiteTime: s.WhiteTime, BlackTime: s.BlackTime})
	if remaining <= 0 {
		c.endWinLocked(s, s.OnClock.Other(), "time")
		return
	}
	id := s.ID
	s.turnTimer.Replace(time.Second, func() { c.turnTick(id) })
}

// SubmitMove validates and applies a move for the player on channelID.
// The mover's countdown stops before validation; an illegal move
// re-arms it without restoring the elapsed second.
func (c *Coordinator) SubmitMove(ch Sender, move string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.byChannel[ch.ID()]
	if s == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.no_session")})
		return
	}
	p, color := s.playerByChannel(ch.ID())
	if s.Phase != PhasePlaying {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.not_playing")})
		return
	}
	if color != s.pos.SideToMove() {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.not_your_turn")})
		return
	}
	s.turnTimer.Stop()
	if err := s.pos.Apply(move); err != nil {
		c.armTurnLocked(s, color)
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.invalid_move")})
		return
	}

	c.broadcastLocked(s, rtproto.EvUpdate, rtproto.Update{FEN: s.pos.FEN()})
	if s.PendingDraw != "" {
		s.PendingDraw = ""
		c.broadcastLocked(s, rtproto.EvDrawOfferCancelled, nil)
	}

	out := s.pos.Outcome()
	if out.Over {
		if out.Checkmate {
			c.endWinLocked(s, color, "checkmate")
		} else {
			c.endDrawLocked(s, "draw")
		}
		return
	}
	c.armTurnLocked(s, color.Other())
}

// Resign ends the session with the opponent as winner.
func (c *Coordinator) Resign(ch Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.byChannel[ch.ID()]
	if s == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.no_session")})
		return
	}
	p, color := s.playerByChannel(ch.ID())
	if s.Phase != PhasePlaying {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.not_playing")})
		return
	}
	obslog.L().Info("match_resign", zap.String("session_id", s.ID), zap.String("user_id", p.UserID))
	c.endWinLocked(s, color.Other(), "resignation")
}

// OfferDraw records a pending draw offer from the caller's color.
func (c *Coordinator) OfferDraw(ch Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.byChannel[ch.ID()]
	if s == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.no_session")})
		return
	}
	p, color := s.playerByChannel(ch.ID())
	if s.Phase != PhasePlaying {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.not_playing")})
		return
	}
	if s.PendingDraw == color {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.draw_already_offered")})
		return
	}
	s.PendingDraw = color
	s.byColor(color.Other()).Ch.Send(rtproto.EvDrawOffered, rtproto.DrawOffered{From: string(color)})
	p.Ch.Send(rtproto.EvDrawOfferSent, nil)
	obslog.L().Info("match_draw_offer", zap.String("session_id", s.ID), zap.String("from", string(color)))
}

// AcceptDraw ends the session as agreed draw. Accepting your own offer
// is rejected.
func (c *Coordinator) AcceptDraw(ch Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.byChannel[ch.ID()]
	if s == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.no_session")})
		return
	}
	p, color := s.playerByChannel(ch.ID())
	if s.Phase != PhasePlaying {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.not_playing")})
		return
	}
	if s.PendingDraw == "" {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.draw_no_offer")})
		return
	}
	if s.PendingDraw == color {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.draw_own_offer")})
		return
	}
	c.endDrawLocked(s, "draw_agreed")
}

// DeclineDraw clears the pending offer and tells both sides.
func (c *Coordinator) DeclineDraw(ch Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.byChannel[ch.ID()]
	if s == nil {
		ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.no_session")})
		return
	}
	p, color := s.playerByChannel(ch.ID())
	if s.Phase != PhasePlaying {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.not_playing")})
		return
	}
	if s.PendingDraw == "" {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.draw_no_offer")})
		return
	}
	if s.PendingDraw == color {
		p.Ch.Send(rtproto.EvError, rtproto.Error{Message: c.cat.Text("chess.draw_own_offer")})
		return
	}
	s.PendingDraw = ""
	c.broadcastLocked(s, rtproto.EvDrawDeclined, nil)
	obslog.L().Info("match_draw_declined", zap.String("session_id", s.ID))
}

// Disconnect handles a transport channel going away: drops it from the
// queue, or settles its session depending on phase. During bidding the
// match is discarded and the remaining player re-queued; during play
// the remaining player wins.
func (c *Coordinator) Disconnect(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.queue {
		if p.Ch.ID() == channelID {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			obslog.L().Info("match_dequeue", zap.String("user_id", p.UserID))
			return
		}
	}

	s := c.byChannel[channelID]
	if s == nil {
		return
	}
	gone, color := s.playerByChannel(channelID)
	remaining := s.byColor(color.Other())
	obslog.L().Info("match_disconnect",
		zap.String("session_id", s.ID),
		zap.String("user_id", gone.UserID),
		zap.String("phase", string(s.Phase)))

	switch s.Phase {
	case PhaseBidding:
		s.Phase = PhaseEnded
		c.deregisterLocked(s)
		remaining.Ch.Send(rtproto.EvOpponentDisconnected, rtproto.OpponentDisconnected{
			Message: c.cat.Text("chess.opponent_disconnected_requeue"),
		})
		c.enqueueLocked(&Player{UserID: remaining.UserID, Name: remaining.Name, Ch: remaining.Ch})
	case PhasePlaying:
		c.endWinLocked(s, color.Other(), "opponent disconnected")
	default:
		c.deregisterLocked(s)
	}
}

func (c *Coordinator) endWinLocked(s *Session, winnerColor Color, reason string) {
	s.Phase = PhaseEnded
	winner := s.byColor(winnerColor)
	loser := s.byColor(winnerColor.Other())
	c.broadcastLocked(s, rtproto.EvWin, rtproto.Win{Winner: winner.UserID, Reason: reason})
	obslog.L().Info("match_end",
		zap.String("session_id", s.ID),
		zap.String("winner", winner.UserID),
		zap.String("reason", reason))
	c.deregisterLocked(s)

	if c.stats != nil {
		go func(winnerID, loserID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.stats.RecordMatchResult(ctx, winnerID, loserID); err != nil {
				obslog.L().Warn("match_stats_error", zap.Error(err))
			}
		}(winner.UserID, loser.UserID)
	}
	c.notify.Dispatch("match_finished", map[string]string{
		"sessionId": s.ID, "winner": winner.UserID, "reason": reason,
	})
}

func (c *Coordinator) endDrawLocked(s *Session, reason string) {
	s.Phase = PhaseEnded
	c.broadcastLocked(s, rtproto.EvDraw, rtproto.Draw{Reason: reason})
	obslog.L().Info("match_end",
		zap.String("session_id", s.ID),
		zap.String("winner", ""),
		zap.String("reason", reason))
	c.deregisterLocked(s)

	if c.stats != nil {
		go func(whiteID, blackID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.stats.RecordMatchDraw(ctx, whiteID, blackID); err != nil {
				obslog.L().Warn("match_stats_error", zap.Error(err))
			}
		}(s.White.UserID, s.Black.UserID)
	}
	c.notify.Dispatch("match_finished", map[string]string{
		"sessionId": s.ID, "winner": "", "reason": reason,
	})
}

func (c *Coordinator) deregisterLocked(s *Session) {
	s.turnTimer.Stop()
	s.bidTimer.Stop()
	delete(c.sessions, s.ID)
	delete(c.byChannel, s.White.Ch.ID())
	delete(c.byChannel, s.Black.Ch.ID())
}

func (c *Coordinator) broadcastLocked(s *Session, event string, payload any) {
	s.White.Ch.Send(event, payload)
	s.Black.Ch.Send(event, payload)
}

func coinFlip() bool {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return false
	}
	return b[0]&1 == 1
}

func randSuffix(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "000000"[:n*2]
	}
	return hex.EncodeToString(b)
}
