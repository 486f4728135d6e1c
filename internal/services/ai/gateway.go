package ai

import (
	"context"

	"github.com/benvon/scanwise/internal/models"
)

// Gateway is the boundary to the external analysis service. One call, one
// structured verdict or one opaque failure; no streaming, no automatic retry.
//
// Callers must guarantee the preconditions: a non-empty selection and a
// configured profile. An unclear-image result is a successful call, not an
// error. The gateway imposes no timeout of its own beyond its HTTP client;
// an unbounded wait is acceptable to the orchestrator.
type Gateway interface {
	Analyze(ctx context.Context, profile models.Profile, images models.Selection) (*models.AnalysisResult, error)
}
