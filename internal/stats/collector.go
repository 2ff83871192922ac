// Package stats produces the periodic runtime snapshot pushed over the
// stats channel.
package stats

import (
	"runtime"
	"time"
)

// Snapshot is one stats payload as it goes over the wire.
type Snapshot struct {
	TakenAt     time.Time `json:"taken_at"`
	Goroutines  int       `json:"goroutines"`
	HeapAlloc   uint64    `json:"heap_alloc_bytes"`
	HeapObjects uint64    `json:"heap_objects"`
	NumGC       uint32    `json:"num_gc"`
	Connections int       `json:"connections"`
	UptimeSecs  int64     `json:"uptime_seconds"`
}

// Collector produces snapshots. The process collector is the default;
// tests substitute a fake.
type Collector interface {
	Collect(now time.Time) Snapshot
}

// Runtime collects Go runtime figures for the current process.
type Runtime struct {
	startedAt time.Time
}

// NewRuntime constructs the process collector.
func NewRuntime() *Runtime {
	return &Runtime{startedAt: time.Now().UTC()}
}

func (r *Runtime) Collect(now time.Time) Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Snapshot{
		TakenAt:     now,
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   ms.HeapAlloc,
		HeapObjects: ms.HeapObjects,
		NumGC:       ms.NumGC,
		UptimeSecs:  int64(now.Sub(r.startedAt).Seconds()),
	}
}
