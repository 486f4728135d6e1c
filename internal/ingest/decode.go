package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/benvon/scanwise/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

// Source is one raw binary image input, as handed over by a file picker,
// camera, or upload form.
type Source interface {
	// Name identifies the source for logging (file name, form field, ...)
	Name() string
	// Open returns the raw bytes of the source
	Open() (io.ReadCloser, error)
}

// FileSource reads an image from a path on disk
type FileSource string

// Name returns the base name of the file
func (f FileSource) Name() string { return filepath.Base(string(f)) }

// Open opens the underlying file
func (f FileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

type bytesSource struct {
	name string
	data []byte
}

func (b *bytesSource) Name() string { return b.name }
func (b *bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(b.data))), nil
}

// BytesSource wraps already-read bytes (e.g. a multipart upload part) as a Source
func BytesSource(name string, data []byte) Source {
	return &bytesSource{name: name, data: data}
}

// Decoder turns one raw source into an EncodedImage. Swappable in tests to
// control decode timing and failures.
type Decoder func(ctx context.Context, src Source) (models.EncodedImage, error)

// DecodeImage is the default Decoder: read the source whole, sniff its MIME
// type, reject anything that is not an image, and transcode to base64.
func DecodeImage(ctx context.Context, src Source) (models.EncodedImage, error) {
	if err := ctx.Err(); err != nil {
		return models.EncodedImage{}, err
	}

	rc, err := src.Open()
	if err != nil {
		return models.EncodedImage{}, fmt.Errorf("failed to open %s: %w", src.Name(), err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return models.EncodedImage{}, fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}
	if len(data) == 0 {
		return models.EncodedImage{}, fmt.Errorf("%s is empty", src.Name())
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return models.EncodedImage{}, fmt.Errorf("%s is not an image (detected %s)", src.Name(), mime.String())
	}

	return models.EncodedImage{
		MIME: mime.String(),
		Data: base64.StdEncoding.EncodeToString(data),
	}, nil
}
