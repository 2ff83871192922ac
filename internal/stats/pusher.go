package stats

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pulse/internal/realtime"
)

// Pusher broadcasts a stats snapshot on a fixed interval, but only
// while someone is listening: an empty registry skips the tick
// entirely, collection included.
type Pusher struct {
	log       *slog.Logger
	registry  *realtime.Registry
	collector Collector
	interval  time.Duration
}

// NewPusher wires the background stats publisher.
func NewPusher(log *slog.Logger, registry *realtime.Registry, collector Collector, interval time.Duration) (*Pusher, error) {
	if registry == nil || collector == nil {
		return nil, errors.New("stats: nil pusher dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Pusher{log: log, registry: registry, collector: collector, interval: interval}, nil
}

// Run blocks until ctx is done.
func (p *Pusher) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.log.Info("stats.pusher.start", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("stats.pusher.stop")
			return
		case now := <-t.C:
			p.push(ctx, now.UTC())
		}
	}
}

func (p *Pusher) push(ctx context.Context, now time.Time) {
	n := p.registry.Len()
	if n == 0 {
		return
	}

	snap := p.collector.Collect(now)
	snap.Connections = n

	msg, err := realtime.JSONMessage(snap)
	if err != nil {
		p.log.Error("stats.encode.fail", "err", err)
		return
	}
	p.registry.Broadcast(ctx, msg)
}
