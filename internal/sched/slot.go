// Package sched provides the single-timer slot used by the realtime
// coordinators. A slot holds at most one armed timer; arming a new one
// always cancels the previous one first, so a phase transition can never
// leak a stale timer.
package sched

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Slot struct {
	clock clockwork.Clock

	mu    sync.Mutex
	timer clockwork.Timer
}

func NewSlot(clock clockwork.Clock) *Slot {
	return &Slot{clock: clock}
}

// Replace cancels any armed timer and arms fn to fire after d. The
// callback runs on the clock's timer goroutine; callers are expected to
// re-acquire their own state lock and re-check liveness inside fn.
func (s *Slot) Replace(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(d, fn)
}

// Stop cancels the armed timer, if any. Safe to call repeatedly and on
// a never-armed slot.
func (s *Slot) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
