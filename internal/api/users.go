package api

import (
	"net/http"
	"strconv"
	"strings"

	"pulse/internal/auth"
	"pulse/internal/user"
)

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	who := auth.IdentityFrom(r.Context())
	u, err := h.users.Me(r.Context(), who)
	if err != nil {
		h.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewFor(who, u))
}

// handleGetUser serves GET /user/{id}.
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/user/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid user id")
		return
	}

	who := auth.IdentityFrom(r.Context())
	u, err := h.users.Get(r.Context(), who, id)
	if err != nil {
		h.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewFor(who, u))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid user id")
		return
	}

	in := user.UpdateInput{
		ID:       req.ID,
		Username: req.Username,
		Password: req.Password,
	}
	if req.Role != nil {
		role := auth.Role(*req.Role)
		in.Role = &role
	}
	if req.State != nil {
		state := auth.State(*req.State)
		in.State = &state
	}

	who := auth.IdentityFrom(r.Context())
	u, err := h.users.Update(r.Context(), who, in)
	if err != nil {
		h.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewFor(who, u))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req deleteUserRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid user id")
		return
	}

	who := auth.IdentityFrom(r.Context())
	if err := h.users.Delete(r.Context(), who, req.ID); err != nil {
		h.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
