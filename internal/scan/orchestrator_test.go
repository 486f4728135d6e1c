package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/scanwise/internal/history"
	"github.com/benvon/scanwise/internal/ingest"
	"github.com/benvon/scanwise/internal/models"
	"github.com/benvon/scanwise/internal/profile"
	"github.com/benvon/scanwise/internal/services/ai"
	"github.com/benvon/scanwise/internal/storage"
)

// fakeGateway returns a canned verdict, optionally holding every call until
// released.
type fakeGateway struct {
	mu      sync.Mutex
	release chan struct{}
	result  *models.AnalysisResult
	err     error
	calls   int
}

func (g *fakeGateway) Analyze(ctx context.Context, p models.Profile, images models.Selection) (*models.AnalysisResult, error) {
	g.mu.Lock()
	g.calls++
	release := g.release
	result, err := g.result, g.err
	g.mu.Unlock()

	if release != nil {
		<-release
	}
	return result, err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func clearResult(summary string) *models.AnalysisResult {
	return &models.AnalysisResult{Summary: summary}
}

func unclearResult(reason string) *models.AnalysisResult {
	return &models.AnalysisResult{ImageQualityCheck: models.ImageQualityCheck{IsUnclear: true, Reason: reason}}
}

type fixture struct {
	orchestrator *Orchestrator
	ingestor     *ingest.Ingestor
	history      *history.Store
	profiles     *profile.Store
	states       chan Snapshot
}

func newFixture(t *testing.T, gateway ai.Gateway, configureProfile bool) *fixture {
	t.Helper()
	ctx := context.Background()
	adapter := storage.NewMemoryAdapter()

	profiles := profile.NewStore(adapter, profile.ConsentPolicy{}, nil)
	if configureProfile {
		p := models.Profile{Age: "34", Gender: models.GenderFemale, HealthContext: "none"}
		if err := profiles.Save(ctx, p); err != nil {
			t.Fatalf("failed to save profile: %v", err)
		}
	}

	decoder := func(ctx context.Context, src ingest.Source) (models.EncodedImage, error) {
		return models.EncodedImage{MIME: "image/png", Data: src.Name()}, nil
	}
	ingestor := ingest.NewIngestor(nil, ingest.WithDecoder(decoder))
	hist := history.NewStore(adapter, 20, nil)

	states := make(chan Snapshot, 32)
	orchestrator := NewOrchestrator(profiles, ingestor, hist, gateway, nil,
		WithObserver(func(snap Snapshot) { states <- snap }))

	return &fixture{
		orchestrator: orchestrator,
		ingestor:     ingestor,
		history:      hist,
		profiles:     profiles,
		states:       states,
	}
}

func (f *fixture) addImages(t *testing.T, names ...string) {
	t.Helper()
	sources := make([]ingest.Source, len(names))
	for i, name := range names {
		sources[i] = ingest.BytesSource(name, []byte("x"))
	}
	f.ingestor.AddFiles(context.Background(), sources...)
}

func (f *fixture) waitForState(t *testing.T, want State) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-f.states:
			if snap.State == want {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q", want)
		}
	}
}

func (f *fixture) waitForHistory(t *testing.T, wantLen int) models.HistoryLog {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		log := f.history.Load(context.Background())
		if len(log) == wantLen {
			return log
		}
		if time.Now().After(deadline) {
			t.Fatalf("history has %d entries, want %d", len(log), wantLen)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartRejectsEmptySelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{result: clearResult("ok")}, true)
	if err := f.orchestrator.Start(context.Background()); !errors.Is(err, ErrNoImages) {
		t.Errorf("Start = %v, want ErrNoImages", err)
	}
}

func TestStartRejectsUnconfiguredProfile(t *testing.T) {
	t.Parallel()

	gateway := &fakeGateway{result: clearResult("ok")}
	f := newFixture(t, gateway, false)
	f.addImages(t, "a")

	if err := f.orchestrator.Start(context.Background()); !errors.Is(err, ErrProfileNotConfigured) {
		t.Errorf("Start = %v, want ErrProfileNotConfigured", err)
	}
	if gateway.callCount() != 0 {
		t.Error("the gateway must never be called while the profile gate is closed")
	}
}

func TestStartRejectsConcurrentAttempt(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	gateway := &fakeGateway{result: clearResult("ok"), release: release}
	f := newFixture(t, gateway, true)
	f.addImages(t, "a")

	if err := f.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	if err := f.orchestrator.Start(context.Background()); !errors.Is(err, ErrScanInFlight) {
		t.Errorf("second Start = %v, want ErrScanInFlight", err)
	}

	close(release)
	f.waitForState(t, StateSucceeded)
	if gateway.callCount() != 1 {
		t.Errorf("gateway calls = %d, want 1", gateway.callCount())
	}
}

func TestSuccessfulScanAppendsHistoryOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{result: clearResult("great product")}, true)
	f.addImages(t, "a", "b")

	if err := f.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	snap := f.waitForState(t, StateSucceeded)
	if snap.Result == nil || snap.Result.Summary != "great product" {
		t.Errorf("snapshot result = %+v", snap.Result)
	}

	log := f.waitForHistory(t, 1)
	if log[0].Result.Summary != "great product" {
		t.Errorf("history entry = %+v", log[0])
	}
	// The preview comes from the first image of the selection
	if log[0].ImagePreviewURL != "data:image/png;base64,a" {
		t.Errorf("ImagePreviewURL = %q", log[0].ImagePreviewURL)
	}
}

func TestUnclearScanNeverReachesHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{result: unclearResult("blurry")}, true)
	f.addImages(t, "a")

	if err := f.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	snap := f.waitForState(t, StateUnclear)
	if snap.Result == nil || snap.Result.ImageQualityCheck.Reason != "blurry" {
		t.Errorf("snapshot result = %+v", snap.Result)
	}

	time.Sleep(50 * time.Millisecond)
	if log := f.history.Load(context.Background()); len(log) != 0 {
		t.Errorf("history = %+v, an unclear verdict must never be recorded", log)
	}
}

func TestRetryAfterUnclearClearsSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{result: unclearResult("blurry")}, true)
	f.addImages(t, "a", "b")

	if err := f.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	f.waitForState(t, StateUnclear)

	if err := f.orchestrator.Retry(); err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}

	snap := f.orchestrator.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("state after Retry = %q, want idle", snap.State)
	}
	if len(f.ingestor.Selection()) != 0 {
		t.Error("the bad selection must be cleared after an unclear verdict")
	}
}

func TestRetryAfterFailurePreservesSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{err: errors.New("connection refused")}, true)
	f.addImages(t, "a", "b")

	if err := f.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	snap := f.waitForState(t, StateFailed)
	if snap.ErrorMessage == "" {
		t.Error("a failed scan must carry a user-facing error message")
	}

	if err := f.orchestrator.Retry(); err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if got := len(f.ingestor.Selection()); got != 2 {
		t.Errorf("selection size after Retry = %d, want 2 (preserved)", got)
	}
}

func TestFailedScanWithConfigErrorSurfacesReason(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{err: &ai.ConfigError{Reason: "OPENAI_API_KEY is not set"}}, true)
	f.addImages(t, "a")

	if err := f.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	snap := f.waitForState(t, StateFailed)
	if snap.ErrorMessage != "OPENAI_API_KEY is not set" {
		t.Errorf("ErrorMessage = %q, want the configuration reason verbatim", snap.ErrorMessage)
	}
}

func TestRetryRequiresTerminalFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{result: clearResult("ok")}, true)
	if err := f.orchestrator.Retry(); err == nil {
		t.Error("Retry from idle must error")
	}
}

func TestResetAbandonsInFlightAttempt(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	f := newFixture(t, &fakeGateway{result: clearResult("late"), release: release}, true)
	f.addImages(t, "a")

	if err := f.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	f.orchestrator.Reset()
	close(release)

	// The late response must be dropped: no state change, no history entry.
	time.Sleep(50 * time.Millisecond)
	snap := f.orchestrator.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("state = %q, want idle after Reset", snap.State)
	}
	if snap.Result != nil {
		t.Error("a stale result must never surface")
	}
	if log := f.history.Load(context.Background()); len(log) != 0 {
		t.Errorf("history = %+v, a stale result must never be recorded", log)
	}
	if len(f.ingestor.Selection()) != 0 {
		t.Error("Reset must clear the selection")
	}
}

func TestNewAttemptAfterResetIsNotStale(t *testing.T) {
	t.Parallel()

	firstRelease := make(chan struct{})
	gateway := &fakeGateway{result: clearResult("first"), release: firstRelease}
	f := newFixture(t, gateway, true)
	f.addImages(t, "a")

	if err := f.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	f.orchestrator.Reset()

	// Second attempt with a fresh selection and an immediate gateway
	gateway.mu.Lock()
	gateway.release = nil
	gateway.result = clearResult("second")
	gateway.mu.Unlock()

	f.addImages(t, "b")
	if err := f.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}
	f.waitForState(t, StateSucceeded)

	// Now let the first, abandoned response land; it must change nothing.
	close(firstRelease)
	time.Sleep(50 * time.Millisecond)

	snap := f.orchestrator.Snapshot()
	if snap.Result == nil || snap.Result.Summary != "second" {
		t.Errorf("result = %+v, want the second attempt's verdict", snap.Result)
	}
	log := f.waitForHistory(t, 1)
	if log[0].Result.Summary != "second" {
		t.Errorf("history = %+v, want only the second attempt recorded", log)
	}
}
