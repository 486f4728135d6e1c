package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/benvon/scanwise/internal/models"
	"github.com/benvon/scanwise/internal/profile"
	"github.com/benvon/scanwise/internal/validation"
	"github.com/gorilla/mux"
)

// ProfileHandler handles profile requests
type ProfileHandler struct {
	store *profile.Store
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(store *profile.Store) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// RegisterRoutes registers profile routes on the given router.
// The router should already carry the /profile prefix.
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetProfile).Methods("GET")
	r.HandleFunc("", h.SaveProfile).Methods("PUT")
}

// SaveProfileRequest represents a save profile request. Consent is ephemeral:
// it travels with the request and is never persisted.
type SaveProfileRequest struct {
	Age           string `json:"age"`
	Gender        string `json:"gender"`
	HealthContext string `json:"health_context"`
	Consented     bool   `json:"consented"`
}

// ProfileResponse represents the profile plus its derived gate status
type ProfileResponse struct {
	Profile         models.Profile `json:"profile"`
	Configured      bool           `json:"configured"`
	ConsentRequired bool           `json:"consent_required"`
}

// GetProfile returns the saved profile and whether the scan gate is open
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := h.store.Load(ctx)
	respondJSON(w, http.StatusOK, ProfileResponse{
		Profile:         p,
		Configured:      profile.IsConfigured(p),
		ConsentRequired: h.store.ConsentRequired(ctx),
	})
}

// SaveProfile validates and persists the profile wholesale
func (h *ProfileHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	if err := validation.ValidateGender(req.Gender); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if h.store.ConsentRequired(ctx) && !req.Consented {
		respondJSONError(w, http.StatusBadRequest, "Consent Required", "The terms must be accepted before saving the profile")
		return
	}

	p := models.Profile{
		Age:           validation.SanitizeText(req.Age),
		Gender:        models.Gender(req.Gender),
		HealthContext: validation.SanitizeText(req.HealthContext),
	}
	if err := h.store.Save(ctx, p); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save profile")
		return
	}

	respondJSON(w, http.StatusOK, ProfileResponse{
		Profile:         p,
		Configured:      profile.IsConfigured(p),
		ConsentRequired: h.store.ConsentRequired(ctx),
	})
}
