package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"pulse/internal/auth"
)

const (
	defaultSendQueueSize = 256
	minSendQueueSize     = 32

	defaultWriteTimeout = 5 * time.Second
	defaultReadIdle     = 2 * time.Minute
	closeGrace          = 1 * time.Second

	maxFrameBytes   = 4 << 10
	maxPingFailures = 3

	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	defaultRateEvents = 120
	defaultRateWindow = 10 * time.Second
)

// GatewayConfig tunes the stats channel transport.
type GatewayConfig struct {
	WriteTimeout    time.Duration
	ReadIdleTimeout time.Duration
	SendQueueSize   int

	HeartbeatEvery   time.Duration
	HeartbeatTimeout time.Duration

	RateEvents int
	RateWindow time.Duration

	// OriginPatterns is passed through to websocket.Accept for
	// cross-origin upgrades; empty means same-host only.
	OriginPatterns []string
}

// DefaultGatewayConfig returns transport defaults.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		WriteTimeout:     defaultWriteTimeout,
		ReadIdleTimeout:  defaultReadIdle,
		SendQueueSize:    defaultSendQueueSize,
		HeartbeatEvery:   heartbeatInterval,
		HeartbeatTimeout: heartbeatTimeout,
		RateEvents:       defaultRateEvents,
		RateWindow:       defaultRateWindow,
	}
}

// Gateway upgrades requests on the stats channel, registers the
// connection, and runs the command loop. The caller's identity comes
// from the request context (the auth interceptor runs first); inbound
// commands are checked against the identity snapshot stored in the
// registry entry, never re-derived from the transport.
type Gateway struct {
	log      *slog.Logger
	registry *Registry
	cfg      GatewayConfig
}

// NewGateway constructs a Gateway over a registry.
func NewGateway(log *slog.Logger, registry *Registry, cfg GatewayConfig) (*Gateway, error) {
	if registry == nil {
		return nil, errors.New("realtime: nil registry")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.SendQueueSize < minSendQueueSize {
		cfg.SendQueueSize = defaultSendQueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ReadIdleTimeout <= 0 {
		cfg.ReadIdleTimeout = defaultReadIdle
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = heartbeatInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = heartbeatTimeout
	}
	return &Gateway{log: log, registry: registry, cfg: cfg}, nil
}

// admit decides whether an identity may hold a stats connection:
// active users and admins always, guest principals only while their
// snapshot is unexpired.
func admit(id auth.Identity, now time.Time) error {
	if err := auth.Require(id, auth.StateActive, auth.RoleUser, auth.RoleAdmin); err == nil {
		return nil
	}
	if id.Authenticated && id.Role == auth.RoleGuest && !id.Expired(now) {
		return nil
	}
	return auth.Denied("user has no access")
}

// ServeHTTP mounts the gateway as an http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.cfg.OriginPatterns,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	// Capability failures surface on the socket, not as a pre-upgrade
	// HTTP status, so clients get a close code they can act on.
	if err := admit(identity, time.Now().UTC()); err != nil {
		g.log.Info("ws.reject", "user_id", identity.ID, "role", identity.Role.String(), "reason", auth.DeniedReason(err))
		_ = conn.Close(websocket.StatusCode(CloseStatusForHTTP(http.StatusForbidden)), auth.DeniedReason(err))
		return
	}

	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := NewClient(g.cfg.SendQueueSize, func(code int, reason string) {
		_ = conn.Close(websocket.StatusCode(code), reason)
		cancel()
	})

	entry, err := g.registry.Connect(ctx, client, identity)
	if err != nil {
		g.log.Error("ws.register.fail", "err", err)
		return
	}
	// Every exit path releases the slot; extra calls are no-ops.
	defer g.registry.Disconnect(entry.Handle, int(websocket.StatusNormalClosure), "bye")

	rl := NewRateLimiter(g.cfg.RateEvents, g.cfg.RateWindow)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case msg := <-client.Send:
				if err := g.write(ctx, conn, msg); err != nil {
					g.log.Info("ws.write.fail", "handle", entry.Handle, "err", err)
					g.registry.Disconnect(entry.Handle, int(websocket.StatusAbnormalClosure), "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.cfg.HeartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					if failures >= maxPingFailures {
						g.registry.Disconnect(entry.Handle, int(websocket.StatusGoingAway), "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

readLoop:
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.cfg.ReadIdleTimeout)
		_, data, err := conn.Read(readCtx)
		readCancel()

		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				g.registry.Disconnect(entry.Handle, int(websocket.StatusNormalClosure), "peer closed")
			case readErrCtxDone:
				g.registry.Disconnect(entry.Handle, int(websocket.StatusNormalClosure), "idle")
			default:
				g.log.Info("ws.read.fail", "handle", entry.Handle, "err", err)
				g.registry.Disconnect(entry.Handle, int(websocket.StatusAbnormalClosure), "read failed")
			}
			break readLoop
		}

		now := time.Now().UTC()
		if !rl.Allow(now) {
			g.registry.Disconnect(entry.Handle, int(websocket.StatusPolicyViolation), "rate limited")
			break readLoop
		}

		if done := g.handleCommand(ctx, entry, strings.TrimSpace(string(data)), now); done {
			break readLoop
		}
	}

	<-writerDone
	select {
	case <-heartbeatDone:
	case <-time.After(closeGrace):
	}
}

// handleCommand dispatches one inbound command. Returns true when the
// connection should stop reading.
func (g *Gateway) handleCommand(ctx context.Context, entry *Entry, cmd string, now time.Time) bool {
	// Re-check the stored snapshot so an expired guest cannot keep a
	// command channel alive between broadcasts.
	if err := admit(entry.Identity, now); err != nil {
		expiryDisconnects.Inc()
		g.registry.Disconnect(entry.Handle, CloseStatusForHTTP(http.StatusForbidden), auth.DeniedReason(err))
		return true
	}

	switch cmd {
	case "ping":
		_ = g.registry.Send(ctx, entry.Handle, TextMessage("pong"))
	case "close":
		g.registry.Disconnect(entry.Handle, int(websocket.StatusNormalClosure), "bye")
		return true
	default:
		_ = g.registry.Send(ctx, entry.Handle, TextMessage("unknown command: "+cmd))
	}
	return false
}

func (g *Gateway) write(parent context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(parent, g.cfg.WriteTimeout)
	defer cancel()

	typ := websocket.MessageText
	if msg.Kind == KindBinary {
		typ = websocket.MessageBinary
	}
	return conn.Write(ctx, typ, msg.Data)
}

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}
