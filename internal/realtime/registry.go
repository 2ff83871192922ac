package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pulse/internal/auth"
)

// Entry states. Transitions only move forward: connected -> closing ->
// closed.
const (
	StateConnected int32 = iota + 1
	StateClosing
	StateClosed
)

var (
	// ErrNotConnected reports a send to a handle that is unknown or no
	// longer in the connected state.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrBackpressure reports a send dropped because the connection's
	// queue was full.
	ErrBackpressure = errors.New("realtime: send queue full")
)

// CloseStatusForHTTP maps an HTTP status to the matching application
// close code (4000 + status), e.g. 403 -> 4403.
func CloseStatusForHTTP(status int) int {
	return 4000 + status
}

// Entry is one registered connection: a stable handle, the identity
// snapshot fixed at accept, and the delivery channel.
type Entry struct {
	Handle   uuid.UUID
	Identity auth.Identity

	client *Client
	state  atomic.Int32
}

// State returns the entry's current lifecycle state.
func (e *Entry) State() int32 { return e.state.Load() }

// Registry tracks live connections and fans messages out to them.
// All map mutations are mutex-guarded; per-entry state is atomic so a
// broadcast can race a disconnect without corrupting the fanout.
type Registry struct {
	log *slog.Logger
	now func() time.Time

	// guard, when set, is consulted before every outbound delivery.
	guard func(auth.Identity, time.Time) error

	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithExpiryGuard makes the registry enforce identity-snapshot expiry:
// any entry whose snapshot has an AccessExpiresAt in the past is
// force-disconnected with an access-denied close code instead of
// receiving the message.
func WithExpiryGuard() Option {
	return func(r *Registry) {
		r.guard = func(id auth.Identity, now time.Time) error {
			if id.Expired(now) {
				return auth.Denied("access expired")
			}
			return nil
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry constructs an empty registry.
func NewRegistry(log *slog.Logger, opts ...Option) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[uuid.UUID]*Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect registers a connection under a fresh handle.
func (r *Registry) Connect(_ context.Context, client *Client, identity auth.Identity) (*Entry, error) {
	if client == nil {
		return nil, errors.New("realtime: nil client")
	}

	e := &Entry{Handle: uuid.New(), Identity: identity, client: client}
	e.state.Store(StateConnected)

	r.mu.Lock()
	r.entries[e.Handle] = e
	n := len(r.entries)
	r.mu.Unlock()

	liveConnections.Set(float64(n))
	r.log.Info("ws.connect", "handle", e.Handle, "user_id", identity.ID, "role", identity.Role.String())
	return e, nil
}

// Disconnect releases a connection: it moves the entry to closing,
// stops the client (which closes the transport with the given code),
// then drops the entry. Safe to call from any goroutine, any number of
// times, including for handles already gone.
func (r *Registry) Disconnect(handle uuid.UUID, code int, reason string) {
	r.mu.Lock()
	e, ok := r.entries[handle]
	if ok {
		delete(r.entries, handle)
	}
	n := len(r.entries)
	r.mu.Unlock()

	if !ok {
		return
	}

	liveConnections.Set(float64(n))

	if !e.state.CompareAndSwap(StateConnected, StateClosing) {
		return
	}
	e.client.Close(code, reason)
	e.state.Store(StateClosed)
	r.log.Info("ws.disconnect", "handle", handle, "code", code, "reason", reason)
}

// Send delivers one message to a single connection. Stale handles and
// full queues disconnect the entry and report an error; an expired
// snapshot on a guarded registry is force-disconnected and receives
// nothing.
func (r *Registry) Send(_ context.Context, handle uuid.UUID, msg Message) error {
	r.mu.RLock()
	e, ok := r.entries[handle]
	r.mu.RUnlock()

	if !ok || e.State() != StateConnected {
		return ErrNotConnected
	}
	if clientDone(e.client) {
		r.Disconnect(handle, 1000, "stale connection")
		return ErrNotConnected
	}

	if r.guard != nil {
		if err := r.guard(e.Identity, r.now()); err != nil {
			expiryDisconnects.Inc()
			r.Disconnect(handle, CloseStatusForHTTP(http.StatusForbidden), auth.DeniedReason(err))
			return err
		}
	}

	select {
	case e.client.Send <- msg:
		return nil
	case <-e.client.Done():
		return ErrNotConnected
	default:
		r.Disconnect(handle, CloseStatusForHTTP(http.StatusServiceUnavailable), "backpressure")
		return ErrBackpressure
	}
}

// Broadcast fans a message out to every connected entry. Entries found
// closing or closed are pruned mid-iteration without failing the
// fanout; on a guarded registry, expired snapshots are force-
// disconnected instead of delivered to. Messages to congested entries
// are dropped, not blocked on.
func (r *Registry) Broadcast(_ context.Context, msg Message) {
	r.mu.RLock()
	snapshot := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		snapshot = append(snapshot, e)
	}
	r.mu.RUnlock()

	now := r.now()
	for _, e := range snapshot {
		if e.State() != StateConnected || clientDone(e.client) {
			// The writer died or a concurrent close won; release the slot.
			r.Disconnect(e.Handle, 1000, "stale connection")
			continue
		}
		if r.guard != nil {
			if err := r.guard(e.Identity, now); err != nil {
				expiryDisconnects.Inc()
				r.Disconnect(e.Handle, CloseStatusForHTTP(http.StatusForbidden), auth.DeniedReason(err))
				continue
			}
		}
		select {
		case e.client.Send <- msg:
		case <-e.client.Done():
		default:
			broadcastDropped.Inc()
		}
	}
}

func clientDone(c *Client) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
