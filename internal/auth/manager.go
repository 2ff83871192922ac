package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"pulse/internal/auth/session"
	"pulse/internal/auth/token"
)

// UserRecord is the slice of an account the manager needs when re-minting
// a pair: fresh role/state are always sourced from the directory, never
// from the old token.
type UserRecord struct {
	ID       int64
	Username string
	Role     Role
	State    State
}

// UserDirectory is the user-lookup collaborator, consulted only during
// rotation to re-validate that the token subject still exists.
// Implementations return ErrUserNotFound for a missing subject.
type UserDirectory interface {
	FindUserByID(ctx context.Context, id int64) (UserRecord, error)
}

// Result is the outcome of authenticating one request.
type Result struct {
	Identity Identity

	// Rotated is non-nil when a new pair was minted; the interceptor must
	// write it (and the session record) back to the transport.
	Rotated *token.Pair

	// SessionID is the session the rotated pair belongs to.
	SessionID string
}

// Manager orchestrates the codec, the session store, and the user
// directory into the per-request authentication state machine.
type Manager struct {
	codec    *token.Codec
	sessions *session.Store
	users    UserDirectory
	cookies  Cookies
	log      *slog.Logger
}

// NewManager wires the manager's collaborators.
func NewManager(log *slog.Logger, codec *token.Codec, sessions *session.Store, users UserDirectory, cookies Cookies) (*Manager, error) {
	if codec == nil || sessions == nil || users == nil {
		return nil, errors.New("auth: nil manager dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{codec: codec, sessions: sessions, users: users, cookies: cookies, log: log}, nil
}

// Authenticate resolves the caller's identity for one request.
//
// Terminal states:
//   - AUTHENTICATED: access, refresh, and session record all valid.
//   - rotated:       access stale, refresh+session valid, subject still
//     exists -> a fresh pair is minted and the request proceeds
//     authenticated under the new access payload.
//   - guest:         every other combination, including valid access with
//     a dead session record (forced logout takes effect within one access
//     lifetime) and malformed/absent tokens.
//
// Rotation is attempted at most once. Two concurrent requests may both
// observe needs-rotation and both mint pairs; the session store's
// last-write-wins overwrite makes the latest rotation authoritative and
// the loser's refresh token dies on its next use. This race is accepted:
// it is brief, self-healing, and cheaper than a per-session lock.
//
// The returned error is non-nil only for infrastructure failures (session
// store or directory unreachable); authentication failures are never
// errors.
func (m *Manager) Authenticate(ctx context.Context, r *http.Request) (Result, error) {
	access, refresh, ok := m.cookies.ReadPair(r)
	if !ok {
		return Result{Identity: Guest()}, nil
	}

	sessionID := m.sessions.SessionID(r)

	validAccess := m.codec.IsValid(access, token.KindAccess)
	validRefresh := m.codec.IsValid(refresh, token.KindRefresh)

	validSession := false
	if validRefresh {
		var err error
		validSession, err = m.sessions.IsValid(ctx, sessionID, refresh)
		if err != nil {
			return Result{}, err
		}
	}

	switch {
	case validAccess && validRefresh && validSession:
		p, err := m.codec.Decode(access, token.KindAccess)
		if err != nil {
			// Validity flipped between IsValid and Decode (expiry edge).
			return Result{Identity: Guest()}, nil
		}
		return Result{Identity: m.identityFromPayload(p)}, nil

	case !validAccess && validRefresh && validSession:
		return m.rotate(ctx, refresh, sessionID)

	default:
		return Result{Identity: Guest()}, nil
	}
}

// rotate mints a replacement pair for a stale access token. Any
// authentication-semantic failure degrades to guest so that protected
// routes answer with a normal denial instead of a server error.
func (m *Manager) rotate(ctx context.Context, refresh, sessionID string) (Result, error) {
	p, err := m.codec.Decode(refresh, token.KindRefresh)
	if err != nil {
		return Result{Identity: Guest()}, nil
	}

	rec, err := m.users.FindUserByID(ctx, p.UserID)
	if errors.Is(err, ErrUserNotFound) {
		// A stale refresh token for a deleted user must never be renewed.
		m.log.Info("auth.rotate.subject_gone", "user_id", p.UserID)
		return Result{Identity: Guest()}, nil
	}
	if err != nil {
		return Result{}, err
	}

	pair, err := m.codec.IssuePair(token.Payload{
		UserID:     rec.ID,
		Username:   rec.Username,
		RoleValue:  int(rec.Role),
		StateValue: int(rec.State),
	})
	if err != nil {
		m.log.Error("auth.rotate.issue_fail", "user_id", rec.ID, "err", err)
		return Result{Identity: Guest()}, nil
	}

	id := Identity{
		ID:            rec.ID,
		Username:      rec.Username,
		Role:          rec.Role,
		State:         rec.State,
		Authenticated: true,
	}
	if rec.Role == RoleGuest {
		id.AccessExpiresAt = pair.AccessExpiresAt
	}

	m.log.Info("auth.rotate", "user_id", rec.ID, "session_id", sessionID)
	return Result{Identity: id, Rotated: &pair, SessionID: sessionID}, nil
}

func (m *Manager) identityFromPayload(p token.Payload) Identity {
	role := Role(p.RoleValue)
	state := State(p.StateValue)
	if !role.Valid() || !state.Valid() {
		return Guest()
	}

	id := Identity{
		ID:            p.UserID,
		Username:      p.Username,
		Role:          role,
		State:         state,
		Authenticated: true,
	}
	if role == RoleGuest {
		id.AccessExpiresAt = p.ExpiresAt
	}
	return id
}
