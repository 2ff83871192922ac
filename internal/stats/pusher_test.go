package stats

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"pulse/internal/auth"
	"pulse/internal/realtime"
)

type fakeCollector struct {
	calls atomic.Int32
}

func (f *fakeCollector) Collect(now time.Time) Snapshot {
	f.calls.Add(1)
	return Snapshot{TakenAt: now, Goroutines: 42}
}

func TestPushSkipsEmptyRegistry(t *testing.T) {
	registry := realtime.NewRegistry(nil)
	col := &fakeCollector{}
	p, err := NewPusher(nil, registry, col, time.Second)
	if err != nil {
		t.Fatalf("NewPusher: %v", err)
	}

	p.push(context.Background(), time.Now().UTC())

	if got := col.calls.Load(); got != 0 {
		t.Fatalf("collector ran %d times for an empty registry", got)
	}
}

func TestPushBroadcastsSnapshot(t *testing.T) {
	registry := realtime.NewRegistry(nil)
	client := realtime.NewClient(4, nil)
	if _, err := registry.Connect(context.Background(), client, auth.Identity{
		ID: 1, Role: auth.RoleUser, State: auth.StateActive, Authenticated: true,
	}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	col := &fakeCollector{}
	p, err := NewPusher(nil, registry, col, time.Second)
	if err != nil {
		t.Fatalf("NewPusher: %v", err)
	}

	p.push(context.Background(), time.Now().UTC())

	select {
	case msg := <-client.Send:
		if msg.Kind != realtime.KindJSON {
			t.Fatalf("message kind = %v", msg.Kind)
		}
		var snap Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if snap.Goroutines != 42 || snap.Connections != 1 {
			t.Fatalf("snapshot = %+v", snap)
		}
	default:
		t.Fatal("no broadcast reached the connection")
	}

	if got := col.calls.Load(); got != 1 {
		t.Fatalf("collector ran %d times, want 1", got)
	}
}

func TestRuntimeCollector(t *testing.T) {
	col := NewRuntime()
	now := time.Now().UTC().Add(3 * time.Second)

	snap := col.Collect(now)
	if snap.Goroutines <= 0 {
		t.Fatalf("goroutines = %d", snap.Goroutines)
	}
	if snap.HeapAlloc == 0 {
		t.Fatal("heap alloc not populated")
	}
	if snap.UptimeSecs < 3 {
		t.Fatalf("uptime = %d", snap.UptimeSecs)
	}
}
