package handlers

import (
	"net/http"

	"github.com/benvon/scanwise/internal/history"
	"github.com/gorilla/mux"
)

// HistoryHandler handles scan history requests
type HistoryHandler struct {
	store *history.Store
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// RegisterRoutes registers history routes on the given router.
// The router should already carry the /history prefix.
func (h *HistoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListHistory).Methods("GET")
	r.HandleFunc("", h.ClearHistory).Methods("DELETE")
}

// ListHistory returns the bounded newest-first history log
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Load(r.Context()))
}

// ClearHistory empties the log and removes the persisted document
func (h *HistoryHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.store.Clear(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"cleared": true})
}
