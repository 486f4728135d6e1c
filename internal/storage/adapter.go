package storage

import "context"

// Storage keys owned by the stores. Each store is the sole writer of its key;
// no cross-key atomicity is ever needed.
const (
	KeyProfile = "scanwise:profile"
	KeyHistory = "scanwise:history"
)

// Adapter is a durable key -> whole-JSON-document store. Documents are always
// read and written whole; there are no partial field updates and no
// transactions across keys.
type Adapter interface {
	// Get returns the document for key. The bool reports whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes the document for key, replacing any previous value. May fail
	// (for example on storage pressure); callers own their fallback behavior.
	Set(ctx context.Context, key string, doc []byte) error
	// Remove deletes the key entirely. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
