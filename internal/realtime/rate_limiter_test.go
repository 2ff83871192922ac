package realtime

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	base := time.Now().UTC()
	rl := NewRateLimiter(3, time.Second)

	for i := 0; i < 3; i++ {
		if !rl.Allow(base) {
			t.Fatalf("event %d rejected inside the limit", i)
		}
	}
	if rl.Allow(base) {
		t.Fatal("event over the limit allowed")
	}

	// The window slides: once the earlier stamps age out, capacity
	// returns.
	if !rl.Allow(base.Add(2 * time.Second)) {
		t.Fatal("event after window slide rejected")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.max != defaultRateEvents || rl.window != defaultRateWindow {
		t.Fatalf("defaults not applied: max=%d window=%v", rl.max, rl.window)
	}
}
