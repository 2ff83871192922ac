package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"pulse/internal/auth/session"
)

// Interceptor runs once per inbound unit of work (HTTP request or
// websocket accept): it resolves the identity, injects it into the request
// context, and on rotation writes the fresh credentials back to the
// transport.
//
// Rotation decisions are resolved before the handler runs, so the handler
// always observes the post-rotation identity. The rotated cookies and the
// overwritten session record are staged on the response head at the same
// point; net/http flushes headers with the handler's first write, so the
// new credentials always leave with the response.
type Interceptor struct {
	mgr      *Manager
	sessions *session.Store
	cookies  Cookies
	log      *slog.Logger
}

// NewInterceptor wires the request-interception middleware.
func NewInterceptor(log *slog.Logger, mgr *Manager, sessions *session.Store, cookies Cookies) *Interceptor {
	if log == nil {
		log = slog.Default()
	}
	return &Interceptor{mgr: mgr, sessions: sessions, cookies: cookies, log: log}
}

// Wrap returns a handler that authenticates every request before
// dispatching to next.
func (i *Interceptor) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := i.mgr.Authenticate(r.Context(), r)
		if err != nil {
			// Infrastructure failure, not an auth decision.
			i.log.Error("auth.infra_fail", "err", err, "path", r.URL.Path)
			writeServiceUnavailable(w)
			return
		}

		if res.Rotated != nil {
			if _, err := i.sessions.Set(r.Context(), w, res.Rotated.Refresh, res.SessionID); err != nil {
				i.log.Error("auth.rotate.session_write_fail", "err", err)
				writeServiceUnavailable(w)
				return
			}
			i.cookies.WritePair(w, *res.Rotated)
			authRotations.Inc()
		}

		authRequests.WithLabelValues(outcomeLabel(res)).Inc()

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), res.Identity)))
	})
}

func outcomeLabel(res Result) string {
	switch {
	case res.Rotated != nil:
		return "rotated"
	case res.Identity.Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

func writeServiceUnavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "service unavailable"})
}
