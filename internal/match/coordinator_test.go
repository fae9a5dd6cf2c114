package match

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quizspire/quizspire-server/internal/msgcat"
	"github.com/quizspire/quizspire-server/internal/notify"
	"github.com/quizspire/quizspire-server/pkg/rtproto"
)

type capturedEvent struct {
	Event   string
	Payload any
}

type fakeSender struct {
	id string

	mu     sync.Mutex
	events []capturedEvent
}

func newFakeSender(id string) *fakeSender { return &fakeSender{id: id} }

func (f *fakeSender) ID() string { return f.id }

func (f *fakeSender) Send(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{Event: event, Payload: payload})
}

func (f *fakeSender) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (f *fakeSender) last(event string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Event == event {
			return f.events[i].Payload, true
		}
	}
	return nil, false
}

// waitFor polls cond because fake-clock timer callbacks run on their
// own goroutine after an Advance.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *clockwork.FakeClock) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	clk := clockwork.NewFakeClock()
	return NewCoordinator(clk, nil, notify.NewDispatcher(""), cat), clk
}

func pairPlayers(t *testing.T, c *Coordinator) (white, black *fakeSender) {
	t.Helper()
	a := newFakeSender("ch-a")
	b := newFakeSender("ch-b")
	c.Enqueue("u-a", "Alice", a)
	if a.count(rtproto.EvWaiting) != 1 {
		t.Fatalf("first player should be waiting")
	}
	c.Enqueue("u-b", "Bob", b)
	if a.count(rtproto.EvPaired) != 1 || b.count(rtproto.EvPaired) != 1 {
		t.Fatalf("both players should be paired")
	}
	c.mu.Lock()
	s := c.byChannel[a.id]
	c.mu.Unlock()
	if s == nil {
		t.Fatalf("no session registered for paired channel")
	}
	if s.White.Ch.ID() == a.id {
		return a, b
	}
	return b, a
}

func startGame(t *testing.T, c *Coordinator, white, black *fakeSender, whiteBid, blackBid float64) rtproto.Start {
	t.Helper()
	c.SubmitBid(white, whiteBid)
	c.SubmitBid(black, blackBid)
	p, ok := white.last(rtproto.EvStart)
	if !ok {
		t.Fatalf("no start event after both bids")
	}
	return p.(rtproto.Start)
}

func TestPairingAssignsColors(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)

	wp, _ := white.last(rtproto.EvPaired)
	bp, _ := black.last(rtproto.EvPaired)
	wop := wp.(rtproto.Paired).Opponent
	bop := bp.(rtproto.Paired).Opponent
	if wop == bop {
		t.Fatalf("both players saw the same opponent name: %q", wop)
	}
}

func TestBiddingResolvesToLowerBid(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)

	start := startGame(t, c, white, black, 90, 300)
	if start.Time != 90 || start.WhiteTime != 90 || start.BlackTime != 90 {
		t.Fatalf("expected 90s clock, got %+v", start)
	}
	if start.YourColor != "white" {
		t.Fatalf("white channel got color %q", start.YourColor)
	}
	bs, _ := black.last(rtproto.EvStart)
	if bs.(rtproto.Start).YourColor != "black" {
		t.Fatalf("black channel got color %q", bs.(rtproto.Start).YourColor)
	}
}

func TestBidBelowFloorRejected(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)

	c.SubmitBid(white, 30)
	if white.count(rtproto.EvError) != 1 {
		t.Fatalf("below-floor bid should be rejected")
	}
	if _, ok := white.last(rtproto.EvStart); ok {
		t.Fatalf("game must not start after a rejected bid")
	}

	// The rejected bid leaves the window open for a valid one.
	start := startGame(t, c, white, black, 60, 75)
	if start.Time != 60 {
		t.Fatalf("expected 60s clock, got %d", start.Time)
	}
}

func TestSecondBidRejected(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, _ := pairPlayers(t, c)

	c.SubmitBid(white, 90)
	c.SubmitBid(white, 120)
	if white.count(rtproto.EvError) != 1 {
		t.Fatalf("second bid should be rejected")
	}
}

func TestBidTimeoutAppliesDefault(t *testing.T) {
	c, clk := newTestCoordinator(t)
	white, black := pairPlayers(t, c)

	c.SubmitBid(white, 70)
	for i := 1; i <= biddingWindowSeconds; i++ {
		clk.Advance(time.Second)
		n := i
		waitFor(t, "bidding tick", func() bool {
			return white.count(rtproto.EvBiddingTimeUpdate) >= n || white.count(rtproto.EvStart) > 0
		})
	}
	waitFor(t, "start after bid timeout", func() bool { return black.count(rtproto.EvStart) == 1 })

	p, _ := white.last(rtproto.EvStart)
	start := p.(rtproto.Start)
	if start.Time != 70 {
		t.Fatalf("expected min(70, default 120) = 70, got %d", start.Time)
	}
}

func TestMoveUpdatesAndTurnAlternates(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)
	startGame(t, c, white, black, 120, 120)

	c.SubmitMove(white, "e2e4")
	if white.count(rtproto.EvUpdate) != 1 || black.count(rtproto.EvUpdate) != 1 {
		t.Fatalf("both players should see the position update")
	}

	// White again out of turn.
	c.SubmitMove(white, "d2d4")
	if white.count(rtproto.EvError) != 1 {
		t.Fatalf("out-of-turn move should be rejected")
	}
	if white.count(rtproto.EvUpdate) != 1 {
		t.Fatalf("rejected move must not change the position")
	}

	c.SubmitMove(black, "e7e5")
	if black.count(rtproto.EvUpdate) != 2 {
		t.Fatalf("black's reply should broadcast an update")
	}
}

func TestIllegalMoveKeepsMoverOnClock(t *testing.T) {
	c, clk := newTestCoordinator(t)
	white, black := pairPlayers(t, c)
	startGame(t, c, white, black, 120, 120)

	c.SubmitMove(white, "e2e5")
	if white.count(rtproto.EvError) != 1 {
		t.Fatalf("illegal move should be rejected")
	}

	clk.Advance(time.Second)
	waitFor(t, "time update after illegal move", func() bool {
		return white.count(rtproto.EvTimeUpdate) >= 1
	})
	p, _ := white.last(rtproto.EvTimeUpdate)
	tu := p.(rtproto.TimeUpdate)
	if tu.WhiteTime != 119 || tu.BlackTime != 120 {
		t.Fatalf("white should still be on the clock, got %+v", tu)
	}
}

func TestFlagFallEndsGame(t *testing.T) {
	c, clk := newTestCoordinator(t)
	white, black := pairPlayers(t, c)
	startGame(t, c, white, black, 60, 60)

	for i := 1; i <= 60; i++ {
		clk.Advance(time.Second)
		n := i
		waitFor(t, "turn tick", func() bool {
			return white.count(rtproto.EvTimeUpdate) >= n || white.count(rtproto.EvWin) > 0
		})
	}
	waitFor(t, "flag fall", func() bool { return black.count(rtproto.EvWin) == 1 })

	p, _ := black.last(rtproto.EvWin)
	win := p.(rtproto.Win)
	if win.Reason != "time" {
		t.Fatalf("expected time win, got %q", win.Reason)
	}
	if win.Winner == "" {
		t.Fatalf("winner missing from payload")
	}
	wp, _ := white.last(rtproto.EvWin)
	if wp.(rtproto.Win).Winner != win.Winner {
		t.Fatalf("both players must see the same winner")
	}
}

func TestCheckmateEndsGame(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)
	startGame(t, c, white, black, 120, 120)

	c.SubmitMove(white, "f2f3")
	c.SubmitMove(black, "e7e5")
	c.SubmitMove(white, "g2g4")
	c.SubmitMove(black, "d8h4")

	p, ok := black.last(rtproto.EvWin)
	if !ok {
		t.Fatalf("checkmate should end the game")
	}
	win := p.(rtproto.Win)
	if win.Reason != "checkmate" {
		t.Fatalf("expected checkmate, got %q", win.Reason)
	}
	if win.Winner != "u-a" && win.Winner != "u-b" {
		t.Fatalf("unexpected winner id %q", win.Winner)
	}
	// The mated side must not be the winner.
	c.mu.Lock()
	alive := len(c.sessions)
	c.mu.Unlock()
	if alive != 0 {
		t.Fatalf("session should be deregistered after the game ends")
	}
}

func TestResign(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)
	startGame(t, c, white, black, 120, 120)

	c.Resign(white)
	p, ok := black.last(rtproto.EvWin)
	if !ok || p.(rtproto.Win).Reason != "resignation" {
		t.Fatalf("expected resignation win, got %+v", p)
	}
}

func TestDrawOfferAcceptDecline(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)
	startGame(t, c, white, black, 120, 120)

	c.OfferDraw(white)
	if white.count(rtproto.EvDrawOfferSent) != 1 {
		t.Fatalf("offerer should get draw_offer_sent")
	}
	p, ok := black.last(rtproto.EvDrawOffered)
	if !ok || p.(rtproto.DrawOffered).From != "white" {
		t.Fatalf("opponent should see the offer origin, got %+v", p)
	}

	// Responding to your own offer is rejected.
	c.AcceptDraw(white)
	if white.count(rtproto.EvError) != 1 {
		t.Fatalf("self-accept should be rejected")
	}

	c.DeclineDraw(black)
	if white.count(rtproto.EvDrawDeclined) != 1 || black.count(rtproto.EvDrawDeclined) != 1 {
		t.Fatalf("decline should be broadcast")
	}

	// Offer again, accept this time.
	c.OfferDraw(black)
	c.AcceptDraw(white)
	d, ok := white.last(rtproto.EvDraw)
	if !ok || d.(rtproto.Draw).Reason != "draw_agreed" {
		t.Fatalf("expected agreed draw, got %+v", d)
	}
}

func TestMoveCancelsPendingDrawOffer(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)
	startGame(t, c, white, black, 120, 120)

	c.OfferDraw(white)
	c.SubmitMove(white, "e2e4")
	if white.count(rtproto.EvDrawOfferCancelled) != 1 || black.count(rtproto.EvDrawOfferCancelled) != 1 {
		t.Fatalf("a move should cancel the pending draw offer")
	}

	c.AcceptDraw(black)
	if black.count(rtproto.EvError) != 1 {
		t.Fatalf("accepting a cancelled offer should be rejected")
	}
}

func TestDisconnectDuringBiddingRequeues(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)

	c.Disconnect(white.id)
	if black.count(rtproto.EvOpponentDisconnected) != 1 {
		t.Fatalf("remaining player should be notified")
	}
	c.mu.Lock()
	queued := len(c.queue)
	c.mu.Unlock()
	if queued != 1 {
		t.Fatalf("remaining player should be back on the queue, got %d", queued)
	}

	third := newFakeSender("ch-c")
	c.Enqueue("u-c", "Cara", third)
	if black.count(rtproto.EvPaired) != 2 || third.count(rtproto.EvPaired) != 1 {
		t.Fatalf("requeued player should pair with the next arrival")
	}
}

func TestDisconnectDuringPlayWinsForRemaining(t *testing.T) {
	c, _ := newTestCoordinator(t)
	white, black := pairPlayers(t, c)
	startGame(t, c, white, black, 120, 120)

	c.Disconnect(black.id)
	p, ok := white.last(rtproto.EvWin)
	if !ok || p.(rtproto.Win).Reason != "opponent disconnected" {
		t.Fatalf("expected disconnect win, got %+v", p)
	}
}

func TestDisconnectFromQueue(t *testing.T) {
	c, _ := newTestCoordinator(t)
	a := newFakeSender("ch-a")
	c.Enqueue("u-a", "Alice", a)
	c.Disconnect(a.id)

	b := newFakeSender("ch-b")
	c.Enqueue("u-b", "Bob", b)
	if b.count(rtproto.EvWaiting) != 1 {
		t.Fatalf("queue should be empty after the only entrant disconnected")
	}
}

func TestActionsWithoutSessionError(t *testing.T) {
	c, _ := newTestCoordinator(t)
	stray := newFakeSender("ch-stray")

	c.SubmitBid(stray, 90)
	c.SubmitMove(stray, "e2e4")
	c.Resign(stray)
	c.OfferDraw(stray)
	c.AcceptDraw(stray)
	c.DeclineDraw(stray)
	if got := stray.count(rtproto.EvError); got != 6 {
		t.Fatalf("every sessionless action should yield a private error, got %d", got)
	}
}

func TestSameUserDoesNotSelfPair(t *testing.T) {
	c, _ := newTestCoordinator(t)
	first := newFakeSender("ch-1")
	second := newFakeSender("ch-2")
	c.Enqueue("u-same", "Alice", first)
	c.Enqueue("u-same", "Alice", second)
	if first.count(rtproto.EvWaiting) != 1 || second.count(rtproto.EvWaiting) != 1 {
		t.Fatalf("duplicate account connections must both keep waiting")
	}
	if first.count(rtproto.EvPaired) != 0 || second.count(rtproto.EvPaired) != 0 {
		t.Fatalf("an account must not pair against itself")
	}

	other := newFakeSender("ch-3")
	c.Enqueue("u-other", "Bob", other)
	if first.count(rtproto.EvPaired) != 1 || other.count(rtproto.EvPaired) != 1 {
		t.Fatalf("distinct opponent should pair with the earliest queue entry")
	}
	if second.count(rtproto.EvPaired) != 0 {
		t.Fatalf("the later duplicate entry should stay queued")
	}
}

func TestEventPayloadsMarshal(t *testing.T) {
	ev, err := rtproto.NewEvent(rtproto.EvStart, rtproto.Start{FEN: "x", YourColor: "white", Time: 90})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(ev.Data, &m); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if _, ok := m["your_color"]; !ok {
		t.Fatalf("start payload should use the your_color key")
	}
}
