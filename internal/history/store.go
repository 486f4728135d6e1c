package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/scanwise/internal/models"
	"github.com/benvon/scanwise/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLimit is the maximum number of entries kept in the history log
const DefaultLimit = 20

// Store owns the bounded, newest-first scan history. It is the sole writer of
// its storage key and keeps an in-memory copy that stays correct even when a
// persist attempt fails.
type Store struct {
	mu      sync.Mutex
	adapter storage.Adapter
	limit   int
	logger  *zap.Logger

	log    models.HistoryLog
	loaded bool
}

// NewStore creates a history store bounded at limit entries (DefaultLimit
// when limit is not positive).
func NewStore(adapter storage.Adapter, limit int, logger *zap.Logger) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{adapter: adapter, limit: limit, logger: logger}
}

// NewEntry builds a history entry for a successful scan result
func NewEntry(result models.AnalysisResult, imagePreviewURL string) models.HistoryEntry {
	return models.HistoryEntry{
		ID:              uuid.NewString(),
		Timestamp:       time.Now().UnixMilli(),
		Result:          result,
		ImagePreviewURL: imagePreviewURL,
	}
}

// Load returns the persisted log, or an empty log when the document is
// absent or malformed. Never returns an error.
func (s *Store) Load(ctx context.Context) models.HistoryLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked(ctx)
	return s.snapshotLocked()
}

// Append inserts entry at the head, evicts from the tail beyond the bound,
// and persists the whole log. A failed write falls back to a second write
// with every preview image stripped; if that also fails the log stays
// correct in memory and the failure is logged, never propagated — a scan
// must not appear to fail because history could not be saved.
func (s *Store) Append(ctx context.Context, entry models.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked(ctx)

	updated := make(models.HistoryLog, 0, len(s.log)+1)
	updated = append(updated, entry)
	updated = append(updated, s.log...)
	if len(updated) > s.limit {
		updated = updated[:s.limit]
	}
	s.log = updated

	s.persistLocked(ctx)
}

// Clear empties the log and removes the persisted document entirely, so a
// later Load behaves identically to "never scanned".
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = nil
	s.loaded = true

	if err := s.adapter.Remove(ctx, storage.KeyHistory); err != nil {
		s.logger.Warn("history_remove_failed", zap.Error(err))
	}
}

func (s *Store) loadLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	doc, ok, err := s.adapter.Get(ctx, storage.KeyHistory)
	if err != nil {
		s.logger.Warn("history_read_failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var log models.HistoryLog
	if err := json.Unmarshal(doc, &log); err != nil {
		s.logger.Warn("history_document_malformed", zap.Error(err))
		return
	}
	s.log = log
}

func (s *Store) persistLocked(ctx context.Context) {
	err := s.writeLocked(ctx, s.log)
	if err == nil {
		return
	}
	s.logger.Warn("history_write_failed_retrying_without_previews", zap.Error(err))

	// Preview data URIs dominate the document size; dropping them is the
	// degraded output under storage pressure.
	stripped := make(models.HistoryLog, len(s.log))
	copy(stripped, s.log)
	for i := range stripped {
		stripped[i].ImagePreviewURL = ""
	}
	if err := s.writeLocked(ctx, stripped); err != nil {
		s.logger.Warn("history_write_failed", zap.Error(err))
		return
	}
	s.log = stripped
}

func (s *Store) writeLocked(ctx context.Context, log models.HistoryLog) error {
	doc, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return s.adapter.Set(ctx, storage.KeyHistory, doc)
}

func (s *Store) snapshotLocked() models.HistoryLog {
	if len(s.log) == 0 {
		return models.HistoryLog{}
	}
	snap := make(models.HistoryLog, len(s.log))
	copy(snap, s.log)
	return snap
}
