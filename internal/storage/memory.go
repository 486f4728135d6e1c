package storage

import (
	"context"
	"sync"
)

// MemoryAdapter is an in-process Adapter. It backs tests and the memory
// storage driver; contents do not survive the process.
type MemoryAdapter struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryAdapter creates an empty in-memory adapter
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{docs: make(map[string][]byte)}
}

// Get returns the stored document for key
func (m *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(doc))
	copy(cp, doc)
	return cp, true, nil
}

// Set stores a copy of doc under key
func (m *MemoryAdapter) Set(ctx context.Context, key string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(doc))
	copy(cp, doc)
	m.docs[key] = cp
	return nil
}

// Remove deletes key; removing an absent key is a no-op
func (m *MemoryAdapter) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, key)
	return nil
}
