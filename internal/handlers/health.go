package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/scanwise/internal/storage"
)

// HealthHandler reports liveness and storage reachability
type HealthHandler struct {
	adapter storage.Adapter
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(adapter storage.Adapter) *HealthHandler {
	return &HealthHandler{adapter: adapter, started: time.Now()}
}

// Health returns 200 when the storage adapter answers reads, 503 otherwise
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	if _, _, err := h.adapter.Get(r.Context(), storage.KeyProfile); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]any{
		"status":         status,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}
