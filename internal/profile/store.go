package profile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/benvon/scanwise/internal/models"
	"github.com/benvon/scanwise/internal/storage"
	"github.com/benvon/scanwise/internal/validation"
	"go.uber.org/zap"
)

// ConsentPolicy controls when the terms consent must be re-affirmed.
// Consent itself is ephemeral and never persisted: a fresh onboarding pass
// always requires it, while editing an already-configured profile requires
// it only when RequireOnEdit is set.
type ConsentPolicy struct {
	RequireOnEdit bool
}

// Store owns the persisted Profile document. It is the sole writer of its
// storage key; every save replaces the document wholesale.
type Store struct {
	adapter storage.Adapter
	policy  ConsentPolicy
	logger  *zap.Logger
}

// NewStore creates a profile store on top of the given adapter
func NewStore(adapter storage.Adapter, policy ConsentPolicy, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{adapter: adapter, policy: policy, logger: logger}
}

// Load returns the last saved profile, or an empty profile when none exists.
// A malformed persisted document is treated as absent and logged, never
// surfaced as an error.
func (s *Store) Load(ctx context.Context) models.Profile {
	doc, ok, err := s.adapter.Get(ctx, storage.KeyProfile)
	if err != nil {
		s.logger.Warn("profile_read_failed", zap.Error(err))
		return models.Profile{}
	}
	if !ok {
		return models.Profile{}
	}

	var p models.Profile
	if err := json.Unmarshal(doc, &p); err != nil {
		s.logger.Warn("profile_document_malformed", zap.Error(err))
		return models.Profile{}
	}
	return p
}

// Save validates the structural shape of p and persists it unconditionally.
// Semantic completeness is the caller's concern, not Save's.
func (s *Store) Save(ctx context.Context, p models.Profile) error {
	if err := validation.Validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.adapter.Set(ctx, storage.KeyProfile, doc); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}

	s.logger.Info("profile_saved", zap.String("gender", string(p.Gender)))
	return nil
}

// ConsentRequired reports whether the terms consent must be shown before the
// next profile save. Editing a configured profile auto-consents unless the
// policy says otherwise.
func (s *Store) ConsentRequired(ctx context.Context) bool {
	if !IsConfigured(s.Load(ctx)) {
		return true
	}
	return s.policy.RequireOnEdit
}

// IsConfigured is the completeness predicate gating all scan attempts:
// age, gender, and health context must all be set.
func IsConfigured(p models.Profile) bool {
	return p.Age != "" && p.Gender != models.GenderUnset && p.HealthContext != ""
}
