// Package schedule runs cancellable delayed callbacks. A Scheduler owns every
// timer it creates so a view can cancel all pending work when it is torn down.
package schedule

import (
	"sync"
	"time"
)

// Scheduler tracks pending delayed tasks.
type Scheduler struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]*time.Timer
	closed  bool
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{pending: make(map[uint64]*time.Timer)}
}

// Handle identifies one scheduled task.
type Handle struct {
	id uint64
	s  *Scheduler
}

// After runs fn once d has elapsed. After Close it returns a zero Handle and
// never runs fn.
func (s *Scheduler) After(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Handle{}
	}
	s.next++
	id := s.next
	s.pending[id] = time.AfterFunc(d, func() {
		if !s.take(id) {
			return
		}
		fn()
	})
	return Handle{id: id, s: s}
}

// take removes id from the pending set and reports whether the task should
// still run.
func (s *Scheduler) take(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok || s.closed {
		return false
	}
	delete(s.pending, id)
	return true
}

// Cancel stops the task. It reports whether the task was still pending.
func (h Handle) Cancel() bool {
	if h.s == nil {
		return false
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	t, ok := h.s.pending[h.id]
	if !ok {
		return false
	}
	delete(h.s.pending, h.id)
	t.Stop()
	return true
}

// Pending returns the number of tasks that have not fired or been cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels every pending task. Further After calls are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

// Closed reports whether Close has been called.
func (s *Scheduler) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
