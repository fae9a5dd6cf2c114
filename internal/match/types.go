package match

import (
	"errors"

	"github.com/quizspire/quizspire-server/internal/sched"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Phase is the lifecycle state of a match session.
type Phase string

const (
	PhaseBidding Phase = "bidding"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

const (
	biddingWindowSeconds = 10
	minBidSeconds        = 60
	defaultBidSeconds    = 120
)

var ErrInvalidMove = errors.New("invalid move")

// Sender delivers events to one participant's transport channel.
type Sender interface {
	ID() string
	Send(event string, payload any)
}

// Player is one side of a match. It owns a reference to the transport
// channel rather than being the channel itself, so the engine never
// depends on channel liveness.
type Player struct {
	UserID string
	Name   string
	Ch     Sender
	Bid    int // seconds; 0 = no bid recorded
}

// Session is one two-player timed match. Owned by the coordinator; all
// access happens under the coordinator mutex.
type Session struct {
	ID    string
	White *Player
	Black *Player
	Phase Phase

	WhiteTime   int // seconds remaining
	BlackTime   int
	BidTimeLeft int
	OnClock     Color // color whose timer is armed while playing

	PendingDraw Color // "" = no pending offer

	pos *Position

	turnTimer *sched.Slot
	bidTimer  *sched.Slot
}

func (s *Session) byColor(c Color) *Player {
	if c == White {
		return s.White
	}
	return s.Black
}

// playerByChannel resolves a transport channel to its player and color.
func (s *Session) playerByChannel(channelID string) (*Player, Color) {
	if s.White != nil && s.White.Ch.ID() == channelID {
		return s.White, White
	}
	if s.Black != nil && s.Black.Ch.ID() == channelID {
		return s.Black, Black
	}
	return nil, ""
}
