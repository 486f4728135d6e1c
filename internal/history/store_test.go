package history

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/benvon/scanwise/internal/models"
	"github.com/benvon/scanwise/internal/storage"
)

// flakyAdapter wraps a MemoryAdapter and fails Set until allowed, simulating
// storage pressure from oversized documents.
type flakyAdapter struct {
	*storage.MemoryAdapter
	failSets int
}

func (f *flakyAdapter) Set(ctx context.Context, key string, doc []byte) error {
	if f.failSets > 0 {
		f.failSets--
		return errors.New("disk full")
	}
	return f.MemoryAdapter.Set(ctx, key, doc)
}

func testResult(summary string) models.AnalysisResult {
	return models.AnalysisResult{Summary: summary}
}

func TestNewEntry(t *testing.T) {
	t.Parallel()

	entry := NewEntry(testResult("good"), "data:image/png;base64,xyz")
	if entry.ID == "" {
		t.Error("entry ID must be set")
	}
	if entry.Timestamp == 0 {
		t.Error("entry timestamp must be set")
	}
	if entry.ImagePreviewURL != "data:image/png;base64,xyz" {
		t.Errorf("ImagePreviewURL = %q", entry.ImagePreviewURL)
	}

	other := NewEntry(testResult("good"), "")
	if other.ID == entry.ID {
		t.Error("entry IDs must be unique")
	}
}

func TestAppendNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(storage.NewMemoryAdapter(), 20, nil)

	store.Append(ctx, NewEntry(testResult("first"), ""))
	store.Append(ctx, NewEntry(testResult("second"), ""))

	log := store.Load(ctx)
	if len(log) != 2 {
		t.Fatalf("len(log) = %d, want 2", len(log))
	}
	if log[0].Result.Summary != "second" || log[1].Result.Summary != "first" {
		t.Errorf("log order = [%s, %s], want newest first", log[0].Result.Summary, log[1].Result.Summary)
	}
}

func TestAppendEvictsBeyondLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(storage.NewMemoryAdapter(), 20, nil)

	for i := 0; i < 21; i++ {
		store.Append(ctx, NewEntry(testResult(fmt.Sprintf("scan-%d", i)), ""))
	}

	log := store.Load(ctx)
	if len(log) != 20 {
		t.Fatalf("len(log) = %d, want 20", len(log))
	}
	if log[0].Result.Summary != "scan-20" {
		t.Errorf("newest entry = %s, want scan-20", log[0].Result.Summary)
	}
	if log[19].Result.Summary != "scan-1" {
		t.Errorf("oldest entry = %s, want scan-1 (scan-0 evicted)", log[19].Result.Summary)
	}
}

func TestLoadSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := storage.NewMemoryAdapter()

	first := NewStore(adapter, 20, nil)
	first.Append(ctx, NewEntry(testResult("persisted"), ""))

	second := NewStore(adapter, 20, nil)
	log := second.Load(ctx)
	if len(log) != 1 || log[0].Result.Summary != "persisted" {
		t.Errorf("log after restart = %+v, want the persisted entry", log)
	}
}

func TestLoadMalformedDocument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := storage.NewMemoryAdapter()
	if err := adapter.Set(ctx, storage.KeyHistory, []byte("[broken")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	store := NewStore(adapter, 20, nil)
	if log := store.Load(ctx); len(log) != 0 {
		t.Errorf("log from malformed document = %+v, want empty", log)
	}
}

func TestClearRemovesDocument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := storage.NewMemoryAdapter()
	store := NewStore(adapter, 20, nil)

	store.Append(ctx, NewEntry(testResult("gone"), ""))
	store.Clear(ctx)

	if log := store.Load(ctx); len(log) != 0 {
		t.Errorf("log after Clear = %+v, want empty", log)
	}
	if _, ok, _ := adapter.Get(ctx, storage.KeyHistory); ok {
		t.Error("Clear must remove the persisted document, not write an empty one")
	}
}

func TestAppendFallsBackToStrippedPreviews(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := &flakyAdapter{MemoryAdapter: storage.NewMemoryAdapter(), failSets: 1}
	store := NewStore(adapter, 20, nil)

	store.Append(ctx, NewEntry(testResult("kept"), "data:image/png;base64,huge"))

	// The in-memory log serves the stripped entries
	log := store.Load(ctx)
	if len(log) != 1 {
		t.Fatalf("len(log) = %d, want 1", len(log))
	}
	if log[0].Result.Summary != "kept" {
		t.Errorf("Summary = %q, the result must survive the fallback", log[0].Result.Summary)
	}
	if log[0].ImagePreviewURL != "" {
		t.Error("preview must be stripped after the fallback write")
	}

	// And so does a fresh store reading the persisted document
	fresh := NewStore(adapter.MemoryAdapter, 20, nil)
	persisted := fresh.Load(ctx)
	if len(persisted) != 1 || persisted[0].ImagePreviewURL != "" {
		t.Errorf("persisted log = %+v, want one entry without preview", persisted)
	}
}

func TestAppendKeepsLogWhenEveryWriteFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := &flakyAdapter{MemoryAdapter: storage.NewMemoryAdapter(), failSets: 2}
	store := NewStore(adapter, 20, nil)

	store.Append(ctx, NewEntry(testResult("memory only"), "data:image/png;base64,huge"))

	log := store.Load(ctx)
	if len(log) != 1 || log[0].Result.Summary != "memory only" {
		t.Errorf("log = %+v, want the entry kept in memory despite write failures", log)
	}
}
