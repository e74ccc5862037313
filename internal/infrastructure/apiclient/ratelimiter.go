package apiclient

import (
	"sync"
	"time"
)

// RateLimiter enforces a sliding window of at most maxRequests per window
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	timestamps  []time.Time
	now         func() time.Time
}

// LimiterOption configures a RateLimiter
type LimiterOption func(*RateLimiter)

// WithLimiterClock replaces the time source
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(rl *RateLimiter) {
		rl.now = now
	}
}

// NewRateLimiter creates a sliding window limiter
func NewRateLimiter(maxRequests int, window time.Duration, opts ...LimiterOption) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// pruneLocked drops timestamps that fell out of the window
func (rl *RateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-rl.window)
	i := 0
	for i < len(rl.timestamps) && !rl.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rl.timestamps = append(rl.timestamps[:0], rl.timestamps[i:]...)
	}
}

// CanMakeRequest reports whether a request fits in the current window
func (rl *RateLimiter) CanMakeRequest() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.pruneLocked(rl.now())
	return len(rl.timestamps) < rl.maxRequests
}

// RecordRequest counts a request at the current time
func (rl *RateLimiter) RecordRequest() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.timestamps = append(rl.timestamps, rl.now())
}

// TryAcquire checks and records in one step. When the window is full it
// returns false together with the time until the next slot frees up.
func (rl *RateLimiter) TryAcquire() (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.pruneLocked(now)
	if len(rl.timestamps) >= rl.maxRequests {
		return false, rl.nextAllowedLocked(now)
	}
	rl.timestamps = append(rl.timestamps, now)
	return true, 0
}

// NextAllowedTime returns how long until the oldest request leaves the window
func (rl *RateLimiter) NextAllowedTime() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.pruneLocked(now)
	return rl.nextAllowedLocked(now)
}

func (rl *RateLimiter) nextAllowedLocked(now time.Time) time.Duration {
	if len(rl.timestamps) == 0 {
		return 0
	}
	wait := rl.timestamps[0].Add(rl.window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// LimiterStats is a snapshot of limiter usage
type LimiterStats struct {
	MaxRequests int           `json:"max_requests"`
	Window      time.Duration `json:"window"`
	InWindow    int           `json:"in_window"`
	Remaining   int           `json:"remaining"`
}

// Stats returns the current usage of the window
func (rl *RateLimiter) Stats() LimiterStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.pruneLocked(rl.now())
	return LimiterStats{
		MaxRequests: rl.maxRequests,
		Window:      rl.window,
		InWindow:    len(rl.timestamps),
		Remaining:   rl.maxRequests - len(rl.timestamps),
	}
}
