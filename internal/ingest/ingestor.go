package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/benvon/scanwise/internal/models"
	"go.uber.org/zap"
)

// Subscriber receives the full current Selection after every successful
// mutation. It is called with a snapshot and must not call back into the
// Ingestor.
type Subscriber func(models.Selection)

// Ingestor accepts raw image sources and maintains the ordered Selection for
// the current scan attempt. Files within one AddFiles batch decode
// concurrently, but the batch is appended and published as a whole, in input
// order — completion order never leaks into the visible Selection.
type Ingestor struct {
	mu        sync.Mutex
	selection models.Selection
	decode    Decoder
	notify    Subscriber
	logger    *zap.Logger
}

// Option configures an Ingestor
type Option func(*Ingestor)

// WithDecoder overrides the default image decoder
func WithDecoder(d Decoder) Option {
	return func(i *Ingestor) { i.decode = d }
}

// WithSubscriber sets the selection subscriber
func WithSubscriber(s Subscriber) Option {
	return func(i *Ingestor) { i.notify = s }
}

// NewIngestor creates an ingestor with an empty selection
func NewIngestor(logger *zap.Logger, opts ...Option) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	ing := &Ingestor{decode: DecodeImage, logger: logger}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// AddFiles decodes the given sources concurrently and appends the successful
// results to the Selection in input order. The updated Selection is published
// once, after every decode in the batch has finished. A source that fails to
// decode is dropped from the batch without failing the others.
func (i *Ingestor) AddFiles(ctx context.Context, sources ...Source) {
	if len(sources) == 0 {
		return
	}

	// Index-addressed results keep input order independent of completion order.
	results := make([]models.EncodedImage, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for idx, src := range sources {
		wg.Add(1)
		go func(idx int, src Source) {
			defer wg.Done()
			results[idx], errs[idx] = i.decode(ctx, src)
		}(idx, src)
	}
	wg.Wait()

	i.mu.Lock()
	defer i.mu.Unlock()

	for idx, src := range sources {
		if errs[idx] != nil {
			i.logger.Warn("image_decode_failed",
				zap.String("source", src.Name()),
				zap.Error(errs[idx]),
			)
			continue
		}
		i.selection = append(i.selection, results[idx])
	}

	i.logger.Debug("selection_batch_appended",
		zap.Int("batch_size", len(sources)),
		zap.Int("selection_size", len(i.selection)),
	)
	i.publishLocked()
}

// RemoveAt removes one image by position and republishes the Selection
func (i *Ingestor) RemoveAt(index int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if index < 0 || index >= len(i.selection) {
		return fmt.Errorf("image index %d out of range (selection has %d images)", index, len(i.selection))
	}

	i.selection = append(i.selection[:index], i.selection[index+1:]...)
	i.publishLocked()
	return nil
}

// Clear drops the whole Selection and republishes it empty
func (i *Ingestor) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.selection) == 0 {
		return
	}
	i.selection = nil
	i.publishLocked()
}

// Selection returns a snapshot of the current ordered selection
func (i *Ingestor) Selection() models.Selection {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.snapshotLocked()
}

func (i *Ingestor) snapshotLocked() models.Selection {
	if len(i.selection) == 0 {
		return nil
	}
	snap := make(models.Selection, len(i.selection))
	copy(snap, i.selection)
	return snap
}

// publishLocked emits a snapshot under the mutex so subscribers observe
// mutations in the order they happened, never a partial batch.
func (i *Ingestor) publishLocked() {
	if i.notify == nil {
		return
	}
	i.notify(i.snapshotLocked())
}
