package auth

import (
	"net/http"
	"strings"
	"time"

	"pulse/internal/auth/token"
)

// CookieConfig defines attributes for the two token cookies. The session-id
// cookie is owned by the session store and configured there.
type CookieConfig struct {
	AccessName  string
	RefreshName string

	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieConfig returns development defaults.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		AccessName:  "access_token",
		RefreshName: "refresh_token",
		Path:        "/",
		SameSite:    http.SameSiteLaxMode,
	}
}

// Cookies reads and writes the access/refresh pair on the transport.
type Cookies struct {
	cfg CookieConfig
}

// NewCookies constructs a Cookies helper, filling in default names.
func NewCookies(cfg CookieConfig) Cookies {
	if strings.TrimSpace(cfg.AccessName) == "" {
		cfg.AccessName = "access_token"
	}
	if strings.TrimSpace(cfg.RefreshName) == "" {
		cfg.RefreshName = "refresh_token"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return Cookies{cfg: cfg}
}

// ReadPair extracts the token pair from the inbound request. ok is false
// only when neither token is present; partial pairs flow into the state
// machine, which treats the missing half as invalid.
func (c Cookies) ReadPair(r *http.Request) (access, refresh string, ok bool) {
	if r == nil {
		return "", "", false
	}
	access = cookieValue(r, c.cfg.AccessName)
	refresh = cookieValue(r, c.cfg.RefreshName)
	return access, refresh, access != "" || refresh != ""
}

// WritePair writes both tokens to the outbound response.
//
// Both cookies live as long as the refresh token on purpose: the browser
// must keep presenting the stale access token after its embedded expiry,
// otherwise the interceptor could never observe the needs-rotation state.
func (c Cookies) WritePair(w http.ResponseWriter, pair token.Pair) {
	if w == nil {
		return
	}
	c.set(w, c.cfg.AccessName, pair.Access, pair.RefreshExpiresAt)
	c.set(w, c.cfg.RefreshName, pair.Refresh, pair.RefreshExpiresAt)
}

// Clear expires both token cookies (sign-out).
func (c Cookies) Clear(w http.ResponseWriter) {
	if w == nil {
		return
	}
	c.expire(w, c.cfg.AccessName)
	c.expire(w, c.cfg.RefreshName)
}

func (c Cookies) set(w http.ResponseWriter, name, value string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	})
}

func (c Cookies) expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	})
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}
