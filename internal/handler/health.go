package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/notebook/internal/apperror"
)

// Pinger is anything that can report whether its backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the server can reach its database.
type HealthHandler struct {
	db     Pinger
	store  string
	logger *slog.Logger
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// NewHealthHandler creates a HealthHandler. store names the active backend
// ("sqlite" or "postgres") in responses.
func NewHealthHandler(db Pinger, store string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, store: store, logger: logger}
}

// HandleHealth pings the store.
//
// HTTP: GET /api/health → 200 {"status":"ok"} or 503
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed",
			slog.String("store", h.store),
			slog.String("error", err.Error()),
		)
		writeError(w, apperror.Unavailable(h.store, err))
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: h.store})
}
