package api

import (
	"errors"
	"log/slog"
	"net/http"

	"pulse/internal/auth"
	"pulse/internal/auth/session"
	"pulse/internal/auth/token"
	"pulse/internal/user"
)

const defaultMaxBodyBytes = 1 << 20

// Handler wires the HTTP endpoints to the account service and the
// credential plumbing.
type Handler struct {
	log      *slog.Logger
	users    *user.Service
	codec    *token.Codec
	sessions *session.Store
	cookies  auth.Cookies

	maxBodyBytes int64
}

// NewHandler constructs the HTTP handler set.
func NewHandler(log *slog.Logger, users *user.Service, codec *token.Codec, sessions *session.Store, cookies auth.Cookies) (*Handler, error) {
	if users == nil || codec == nil || sessions == nil {
		return nil, errors.New("api: nil handler dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:          log,
		users:        users,
		codec:        codec,
		sessions:     sessions,
		cookies:      cookies,
		maxBodyBytes: defaultMaxBodyBytes,
	}, nil
}

// Register wires the routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/auth/signIn", h.handleSignIn)
	mux.HandleFunc("/auth/signOut", h.handleSignOut)
	mux.HandleFunc("/initialize/createStartUser", h.handleCreateStartUser)
	mux.HandleFunc("/ping", h.handlePing)

	mux.HandleFunc("/user/current", h.handleCurrentUser)
	mux.HandleFunc("/user/", h.handleGetUser)
	mux.HandleFunc("/user/update", h.handleUpdateUser)
	mux.HandleFunc("/user/delete", h.handleDeleteUser)
}

// ---- auth endpoints ----

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	who := auth.IdentityFrom(r.Context())
	if err := auth.RequireUnauthenticated(who); err != nil {
		h.mapError(w, err)
		return
	}

	var req signInRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	u, err := h.users.VerifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		h.mapError(w, err)
		return
	}

	pair, err := h.codec.IssuePair(token.Payload{
		UserID:     u.ID,
		Username:   u.Username,
		RoleValue:  int(u.Role),
		StateValue: int(u.State),
	})
	if err != nil {
		h.log.Error("auth.signin.issue_fail", "user_id", u.ID, "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}

	if _, err := h.sessions.Set(ctx, w, pair.Refresh, ""); err != nil {
		h.log.Error("auth.signin.session_fail", "user_id", u.ID, "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}
	h.cookies.WritePair(w, pair)

	h.log.Info("auth.signin", "user_id", u.ID, "username", u.Username)
	self := auth.Identity{ID: u.ID, Username: u.Username, Role: u.Role, State: u.State, Authenticated: true}
	writeJSON(w, http.StatusOK, viewFor(self, u))
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if sid := h.sessions.SessionID(r); sid != "" {
		if err := h.sessions.Delete(ctx, w, sid); err != nil {
			h.log.Error("auth.signout.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
			return
		}
	}
	h.cookies.Clear(w)

	who := auth.IdentityFrom(ctx)
	h.log.Info("auth.signout", "user_id", who.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

func (h *Handler) handleCreateStartUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createStartUserRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	who := auth.IdentityFrom(r.Context())
	created, err := h.users.CreateStart(r.Context(), who, req.Username, req.Password)
	if err != nil {
		h.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userView{ID: created.ID, Username: created.Username})
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

// ---- error mapping ----

func (h *Handler) mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access_denied", auth.DeniedReason(err))
	case errors.Is(err, user.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, "bad_credentials", "invalid username or password")
	case errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, user.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken", "username already in use")
	case errors.Is(err, user.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.log.Error("api.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
	}
}
