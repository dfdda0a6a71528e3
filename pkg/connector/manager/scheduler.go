package manager

import (
	"sync"
	"time"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// deferredScheduler re-enqueues suspended work items after a delay. One
// scheduler exists per manager, created lazily on the first suspension.
// Each entry is fire-once: a fired or cancelled timer is forgotten, and at
// most one timer exists per request at a time, which is what keeps an item
// on either the pool queue or the timer queue but never both.
type deferredScheduler struct {
	mu      sync.Mutex
	timers  map[domain.AtomicRequestID]*time.Timer
	stopped bool
}

func newDeferredScheduler() *deferredScheduler {
	return &deferredScheduler{timers: make(map[domain.AtomicRequestID]*time.Timer)}
}

// schedule arms a resume timer for the request. A previously armed timer
// for the same request is replaced. After stop, scheduling is a no-op.
func (s *deferredScheduler) schedule(id domain.AtomicRequestID, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		if !s.fired(id) {
			return
		}
		fn()
	})
}

// fired consumes the timer entry; false means the timer was cancelled or
// the scheduler stopped, and the callback must not run.
func (s *deferredScheduler) fired(id domain.AtomicRequestID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if _, ok := s.timers[id]; !ok {
		return false
	}
	delete(s.timers, id)
	return true
}

// cancel disarms a pending resume for the request, if any.
func (s *deferredScheduler) cancel(id domain.AtomicRequestID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// stop disarms every pending resume. Timers that already fired but have not
// yet consumed their entry observe the stopped flag and no-op.
func (s *deferredScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// pendingCount returns the number of armed resume timers.
func (s *deferredScheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
