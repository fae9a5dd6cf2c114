package quiz

import (
	"time"

	"github.com/quizspire/quizspire-server/internal/sched"
	"github.com/quizspire/quizspire-server/pkg/rtproto"
)

// Status is the lifecycle state of a lobby.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusStarting Status = "starting" // deck fetch in flight
	StatusPlaying  Status = "playing"
	StatusEnded    Status = "ended"
)

type WinCondition string

const (
	WinTime    WinCondition = "time"
	WinCorrect WinCondition = "correct_answers"
	WinScore   WinCondition = "score"
)

const (
	defaultQuestionSeconds = 20
	resultsDelay           = 3 * time.Second
	optionCount            = 4
)

// Settings are the per-game rules chosen by the host.
type Settings struct {
	WinCondition      WinCondition
	Threshold         int
	ResetOnIncorrect  bool
	QuestionTimeLimit int
	AllowLateJoin     bool
	HostParticipates  bool
}

func settingsFromProto(p rtproto.Settings) Settings {
	s := Settings{
		Threshold:         p.Threshold,
		ResetOnIncorrect:  p.ResetOnIncorrect,
		QuestionTimeLimit: p.QuestionTimeLimit,
		AllowLateJoin:     p.AllowLateJoin,
		HostParticipates:  p.HostParticipates,
	}
	switch WinCondition(p.WinCondition) {
	case WinCorrect:
		s.WinCondition = WinCorrect
	case WinScore:
		s.WinCondition = WinScore
	default:
		s.WinCondition = WinTime
	}
	if s.QuestionTimeLimit <= 0 {
		s.QuestionTimeLimit = defaultQuestionSeconds
	}
	return s
}

func (s Settings) toProto() rtproto.Settings {
	return rtproto.Settings{
		WinCondition:      string(s.WinCondition),
		Threshold:         s.Threshold,
		ResetOnIncorrect:  s.ResetOnIncorrect,
		QuestionTimeLimit: s.QuestionTimeLimit,
		AllowLateJoin:     s.AllowLateJoin,
		HostParticipates:  s.HostParticipates,
	}
}

// Sender delivers events to one member's transport channel.
type Sender interface {
	ID() string
	Send(event string, payload any)
}

// Player is one lobby member. The host is a Player too, but appears in
// Lobby.Players only when they participate in answering.
type Player struct {
	UserID   string
	Username string
	Guest    bool
	Score    int
	Correct  int
	Ch       Sender
}

// Lobby is one quiz room. Owned by the coordinator; all access happens
// under the coordinator mutex.
type Lobby struct {
	Code     string
	Host     *Player
	Players  []*Player // answer-eligible members, join order
	DeckID   string
	Settings Settings
	Status   Status
	Game     *Game
}

// members returns everyone who should receive broadcasts: the host
// plus all players, deduplicated when the host participates.
func (l *Lobby) members() []*Player {
	if l.Host == nil {
		return l.Players
	}
	for _, p := range l.Players {
		if p == l.Host {
			return l.Players
		}
	}
	out := make([]*Player, 0, len(l.Players)+1)
	out = append(out, l.Host)
	return append(out, l.Players...)
}

func (l *Lobby) memberByChannel(channelID string) *Player {
	for _, p := range l.members() {
		if p.Ch.ID() == channelID {
			return p
		}
	}
	return nil
}

func (l *Lobby) memberByUser(userID string) *Player {
	for _, p := range l.members() {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// playerByChannel resolves a channel to an answer-eligible player; a
// non-participating host resolves to nil.
func (l *Lobby) playerByChannel(channelID string) *Player {
	for _, p := range l.Players {
		if p.Ch.ID() == channelID {
			return p
		}
	}
	return nil
}

func (l *Lobby) playerByUser(userID string) *Player {
	for _, p := range l.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Question is one generated multiple-choice round.
type Question struct {
	Prompt       string
	Options      []string
	CorrectIndex int
}

type answerRecord struct {
	SelectedIndex int // -1 = never answered
	Correct       bool
	Elapsed       float64 // seconds from question start; valid when SelectedIndex >= 0
	Points        int
}

// Game is one active run of questions inside a lobby.
type Game struct {
	Questions []Question
	Index     int
	StartedAt time.Time
	answers   map[string]answerRecord // user id -> record for current question
	awaiting  bool                    // true while the current question accepts answers
	timer     *sched.Slot             // question timeout, then the results delay
}
