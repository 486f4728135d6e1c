package scan

import (
	"context"
	"errors"
	"sync"

	"github.com/benvon/scanwise/internal/history"
	"github.com/benvon/scanwise/internal/ingest"
	logpkg "github.com/benvon/scanwise/internal/logger"
	"github.com/benvon/scanwise/internal/models"
	"github.com/benvon/scanwise/internal/profile"
	"github.com/benvon/scanwise/internal/services/ai"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the orchestrator's position in the per-attempt state machine
type State string

const (
	// StateIdle means no request is in flight; a scan may start
	StateIdle State = "idle"
	// StateAnalyzing means one analysis request is in flight
	StateAnalyzing State = "analyzing"
	// StateUnclear is terminal for the attempt: the input images could not be
	// interpreted and the user must recapture
	StateUnclear State = "unclear"
	// StateSucceeded is terminal for the attempt: a verdict was produced and
	// appended to history
	StateSucceeded State = "succeeded"
	// StateFailed is terminal for the attempt: the gateway call failed; the
	// selection is preserved so the user can retry without recapturing
	StateFailed State = "failed"
)

var (
	// ErrScanInFlight is returned when a scan is started while another is analyzing
	ErrScanInFlight = errors.New("a scan is already in progress")
	// ErrNoImages is returned when a scan is started with an empty selection
	ErrNoImages = errors.New("no images selected")
	// ErrProfileNotConfigured is returned when the profile gate blocks a scan
	ErrProfileNotConfigured = errors.New("profile is not configured")
)

// Snapshot is the orchestrator state exposed to presentation layers
type Snapshot struct {
	State        State                  `json:"state"`
	Result       *models.AnalysisResult `json:"result,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Selection    int                    `json:"selection_size"`
}

// Observer receives a snapshot after every state transition
type Observer func(Snapshot)

// Orchestrator drives one scan attempt at a time: profile gate, gateway
// call, outcome classification, history write. At most one analysis request
// is ever in flight per instance; responses for abandoned attempts are
// detected by attempt id and dropped.
type Orchestrator struct {
	mu      sync.Mutex
	state   State
	attempt uuid.UUID
	result  *models.AnalysisResult
	errMsg  string

	profiles *profile.Store
	ingestor *ingest.Ingestor
	history  *history.Store
	gateway  ai.Gateway
	logger   *zap.Logger
	notify   Observer
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithObserver sets the state-transition observer. The observer is called
// with a snapshot and must not call back into the orchestrator.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.notify = obs }
}

// NewOrchestrator wires the orchestrator to its collaborators
func NewOrchestrator(profiles *profile.Store, ingestor *ingest.Ingestor, hist *history.Store, gateway ai.Gateway, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		state:    StateIdle,
		profiles: profiles,
		ingestor: ingestor,
		history:  hist,
		gateway:  gateway,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ingestor returns the image ingestor feeding this orchestrator
func (o *Orchestrator) Ingestor() *ingest.Ingestor {
	return o.ingestor
}

// Start begins a scan attempt for the current selection. It rejects a second
// attempt while one is analyzing, an empty selection, and an unconfigured
// profile — no gateway call is ever issued while the profile gate is closed.
// The analysis itself runs in the background; observe progress via the
// Observer or Snapshot.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateAnalyzing {
		return ErrScanInFlight
	}

	selection := o.ingestor.Selection()
	if len(selection) == 0 {
		return ErrNoImages
	}

	p := o.profiles.Load(ctx)
	if !profile.IsConfigured(p) {
		return ErrProfileNotConfigured
	}

	attemptID := uuid.New()
	o.attempt = attemptID
	o.state = StateAnalyzing
	o.result = nil
	o.errMsg = ""

	o.logger.Info("scan_started",
		zap.String("attempt_id", attemptID.String()),
		zap.Int("image_count", len(selection)),
	)
	o.publishLocked()

	go o.run(ctx, attemptID, p, selection)
	return nil
}

// run performs the gateway call for one attempt and applies its outcome,
// unless the attempt has been superseded in the meantime.
func (o *Orchestrator) run(ctx context.Context, attemptID uuid.UUID, p models.Profile, selection models.Selection) {
	result, err := o.gateway.Analyze(ctx, p, selection)

	o.mu.Lock()
	if o.attempt != attemptID || o.state != StateAnalyzing {
		o.mu.Unlock()
		o.logger.Info("stale_analysis_dropped", zap.String("attempt_id", attemptID.String()))
		return
	}

	if err != nil {
		o.state = StateFailed
		o.errMsg = ai.UserMessage(err)
		o.logger.Warn("scan_failed",
			zap.String("attempt_id", attemptID.String()),
			zap.Error(err),
		)
		o.publishLocked()
		o.mu.Unlock()
		return
	}

	if result.ImageQualityCheck.IsUnclear {
		o.state = StateUnclear
		o.result = result
		o.logger.Info("scan_unclear",
			zap.String("attempt_id", attemptID.String()),
			zap.String("reason", result.ImageQualityCheck.Reason),
		)
		o.publishLocked()
		o.mu.Unlock()
		return
	}

	o.state = StateSucceeded
	o.result = result
	entry := history.NewEntry(*result, selection[0].DataURI())
	o.logger.Info("scan_succeeded",
		zap.String("attempt_id", attemptID.String()),
		zap.String("preview", logpkg.SanitizeDataURI(entry.ImagePreviewURL)),
	)
	o.publishLocked()
	o.mu.Unlock()

	// The result is already visible; history persistence never blocks or
	// fails the scan (the store absorbs write failures itself).
	o.history.Append(ctx, entry)
}

// Retry returns to Idle for a new attempt. After an unclear result the
// selection is cleared (the input was bad); after a failure it is preserved
// (the service was bad, recapturing would punish the user).
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateUnclear:
		o.ingestor.Clear()
	case StateFailed:
		// keep the selection
	default:
		return errors.New("retry is only available after an unclear or failed scan")
	}

	o.attempt = uuid.Nil
	o.state = StateIdle
	o.result = nil
	o.errMsg = ""
	o.publishLocked()
	return nil
}

// Reset clears the selection and result and returns to Idle. Allowed at any
// time: resetting while analyzing abandons the in-flight attempt, whose
// response will be dropped as stale when it arrives.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.attempt = uuid.Nil
	o.state = StateIdle
	o.result = nil
	o.errMsg = ""
	o.ingestor.Clear()
	o.publishLocked()
}

// Snapshot returns the current state for presentation
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		State:        o.state,
		Result:       o.result,
		ErrorMessage: o.errMsg,
		Selection:    len(o.ingestor.Selection()),
	}
}

func (o *Orchestrator) publishLocked() {
	if o.notify == nil {
		return
	}
	o.notify(o.snapshotLocked())
}
