package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// Config defines session record lifetime and session-id cookie attributes.
type Config struct {
	// CookieName is the transport carrier for the session id. It travels
	// separately from the token cookies.
	CookieName string

	// TTL is the record lifetime. It is reset on every overwrite and should
	// track the refresh token lifetime.
	TTL time.Duration

	CookiePath   string
	CookieDomain string
	CookieSecure bool
	SameSite     http.SameSite
}

// DefaultConfig returns development defaults; production overrides via env.
func DefaultConfig() Config {
	return Config{
		CookieName: "session_id",
		TTL:        7 * 24 * time.Hour,
		CookiePath: "/",
		SameSite:   http.SameSiteLaxMode,
	}
}

// Validate reports whether the config is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CookieName) == "" {
		return fmt.Errorf("%w: empty cookie name", ErrConfig)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("%w: non-positive TTL", ErrConfig)
	}
	return nil
}

// Store maps a session id to the currently-valid refresh token value.
//
// All operations are single-key and atomic on the Redis side; sessions are
// independent, so no cross-key transactions are needed.
type Store struct {
	rdb redis.UniversalClient
	cfg Config
}

// NewStore constructs a Store over an established Redis client.
func NewStore(rdb redis.UniversalClient, cfg Config) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("session: nil redis client")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{rdb: rdb, cfg: cfg}, nil
}

// NewSessionID returns a fresh session identifier (ULID, 26 chars).
func NewSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}

// SessionID reads the session identifier from the inbound request.
// Returns "" when the cookie is absent or empty.
func (s *Store) SessionID(r *http.Request) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

// IsValid reports whether a record exists for sessionID whose stored
// refresh token equals the given value.
//
// A missing record is a clean false; only transport/store failures error.
func (s *Store) IsValid(ctx context.Context, sessionID, refreshToken string) (bool, error) {
	if sessionID == "" || refreshToken == "" {
		return false, nil
	}

	stored, err := s.rdb.Get(ctx, keyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session: get %s: %w", sessionID, err)
	}

	return secureEqual(stored, refreshToken), nil
}

// Set overwrites (or creates, when sessionID is empty) the record with the
// new refresh token, resets its TTL, and writes the session-id cookie to
// the outbound response. Returns the effective session id.
//
// Concurrent rotations for the same session race last-write-wins; the
// loser's refresh token fails validation on its next request.
func (s *Store) Set(ctx context.Context, w http.ResponseWriter, refreshToken, sessionID string) (string, error) {
	if refreshToken == "" {
		return "", errors.New("session: empty refresh token")
	}
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	if err := s.rdb.Set(ctx, keyPrefix+sessionID, refreshToken, s.cfg.TTL).Err(); err != nil {
		return "", fmt.Errorf("session: set %s: %w", sessionID, err)
	}

	s.writeCookie(w, sessionID)
	return sessionID, nil
}

// Delete removes the record and expires the session-id cookie. Deleting an
// unknown session is a no-op.
func (s *Store) Delete(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	if sessionID != "" {
		if err := s.rdb.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
			return fmt.Errorf("session: del %s: %w", sessionID, err)
		}
	}
	s.expireCookie(w)
	return nil
}

// Ping verifies the backing store is reachable (readiness checks).
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) writeCookie(w http.ResponseWriter, sessionID string) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sessionID,
		Path:     s.cfg.CookiePath,
		Domain:   s.cfg.CookieDomain,
		Expires:  time.Now().UTC().Add(s.cfg.TTL),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: s.cfg.SameSite,
	})
}

func (s *Store) expireCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     s.cfg.CookiePath,
		Domain:   s.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: s.cfg.SameSite,
	})
}

func secureEqual(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
