package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/parkshare/internal/apperr"
	"github.com/hongminglow/parkshare/internal/http/respond"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

// HealthHandler returns uptime and store status.
type HealthHandler struct {
	startedAt time.Time
	store     Pinger
}

// NewHealthHandler creates a health endpoint handler. A nil store skips the
// connectivity check.
func NewHealthHandler(startedAt time.Time, store Pinger) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, store: store}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handle)
	mux.HandleFunc("GET /api/health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	store := "skipped"
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			respond.Fail(w, apperr.Transient(err))
			return
		}
		store = "ok"
	}

	respond.JSON(w, http.StatusOK, "ok", map[string]string{
		"status": "ok",
		"store":  store,
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}
