package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is anything the readiness probe checks (Redis, Postgres).
type Pinger interface {
	Ping(ctx context.Context) error
}

// InfoHandler serves the version and health routes.
type InfoHandler struct {
	log     *slog.Logger
	version string
	checks  map[string]Pinger
}

// NewInfoHandler constructs the info routes. checks maps a probe name
// to its dependency; nil entries are skipped.
func NewInfoHandler(log *slog.Logger, version string, checks map[string]Pinger) *InfoHandler {
	if log == nil {
		log = slog.Default()
	}
	return &InfoHandler{log: log, version: version, checks: checks}
}

// Register wires the info routes onto the mux.
func (h *InfoHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/info/version", h.handleVersion)
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.HandleFunc("/readyz", h.handleReadyz)
}

func (h *InfoHandler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

// handleHealthz is liveness only: the process is up.
func (h *InfoHandler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings every registered dependency.
func (h *InfoHandler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	ready := true
	for name, p := range h.checks {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			h.log.Error("readyz.fail", "check", name, "err", err)
			status[name] = "down"
			ready = false
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
