// Package refresh schedules widget data loads
package refresh

import (
	"sync"
	"time"

	"finboard-service/internal/infrastructure/metrics"
)

// Timer is a pending callback that can be stopped
type Timer interface {
	Stop() bool
}

// TimerFactory starts fn after d
type TimerFactory func(d time.Duration, fn func()) Timer

// RealTimers is the time.AfterFunc backed factory
func RealTimers(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

type task struct {
	timer Timer
	gen   uint64
}

// Scheduler owns cancellable delayed tasks keyed by name. Scheduling a key
// that is already pending replaces the earlier task.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
	gen   uint64
	after TimerFactory
}

// NewScheduler creates a scheduler; a nil factory uses real timers
func NewScheduler(after TimerFactory) *Scheduler {
	if after == nil {
		after = RealTimers
	}
	return &Scheduler{
		tasks: make(map[string]*task),
		after: after,
	}
}

// Schedule runs fn after delay unless key is cancelled or rescheduled first
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	if prev, ok := s.tasks[key]; ok {
		prev.timer.Stop()
	}
	s.gen++
	t := &task{gen: s.gen}
	s.tasks[key] = t
	gen := t.gen
	t.timer = s.after(delay, func() {
		if !s.claim(key, gen) {
			return
		}
		fn()
	})
	pending := len(s.tasks)
	s.mu.Unlock()

	metrics.SetScheduledTasks(pending)
}

// claim removes the task if it is still the current one for key
func (s *Scheduler) claim(key string, gen uint64) bool {
	s.mu.Lock()
	t, ok := s.tasks[key]
	current := ok && t.gen == gen
	if current {
		delete(s.tasks, key)
	}
	pending := len(s.tasks)
	s.mu.Unlock()

	metrics.SetScheduledTasks(pending)
	return current
}

// Cancel stops the pending task for key
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	t, ok := s.tasks[key]
	if ok {
		t.timer.Stop()
		delete(s.tasks, key)
	}
	pending := len(s.tasks)
	s.mu.Unlock()

	metrics.SetScheduledTasks(pending)
	return ok
}

// CancelAll stops every pending task and returns how many were dropped
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	n := len(s.tasks)
	for key, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, key)
	}
	s.mu.Unlock()

	metrics.SetScheduledTasks(0)
	return n
}

// Pending returns the number of tasks waiting to run
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
