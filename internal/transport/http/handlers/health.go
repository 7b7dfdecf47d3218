package http_handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
)

// Pinger is the reachability surface of the session/token backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers orchestrator checks. Liveness is unconditional;
// readiness checks the account store and, when one is wired, the redis
// backend holding sessions and reset tokens.
type HealthHandler struct {
	db    *sql.DB
	cache Pinger
}

func NewHealthHandler(db *sql.DB, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	ready := true
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			checks["db"] = "unavailable"
			ready = false
		} else {
			checks["db"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			checks["redis"] = "unavailable"
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if !ready {
		writeHealth(w, http.StatusServiceUnavailable, healthBody{Status: "unavailable", Checks: checks})
		return
	}
	writeHealth(w, http.StatusOK, healthBody{Status: "ready", Checks: checks})
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// health endpoints answer raw JSON without the data envelope; they are read
// by machines, not API clients
func writeHealth(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
