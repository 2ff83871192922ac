package realtime

import (
	"sync"
	"time"
)

// RateLimiter caps inbound command throughput per connection over a
// sliding window.
type RateLimiter struct {
	mu     sync.Mutex
	stamps []time.Time
	max    int
	window time.Duration
}

// NewRateLimiter constructs a limiter allowing max events per window.
// Non-positive inputs fall back to the gateway defaults.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = defaultRateEvents
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &RateLimiter{
		stamps: make([]time.Time, 0, max),
		max:    max,
		window: window,
	}
}

// Allow reports whether an event at now fits the window, recording it
// when it does.
func (r *RateLimiter) Allow(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stamps arrive in call order, so everything outside the window sits
	// in a prefix.
	cut := now.Add(-r.window)
	drop := 0
	for drop < len(r.stamps) && !r.stamps[drop].After(cut) {
		drop++
	}
	if drop > 0 {
		r.stamps = append(r.stamps[:0], r.stamps[drop:]...)
	}

	if len(r.stamps) >= r.max {
		return false
	}
	r.stamps = append(r.stamps, now)
	return true
}
