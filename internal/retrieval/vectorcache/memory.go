package vectorcache

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a process-local cache store
type MemoryStore struct {
	entries     map[string]Entry
	fingerprint Fingerprint
	mu          sync.RWMutex
}

// NewMemoryStore creates a new in-memory cache store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

// Validate checks the fingerprint and the cached hash set
func (m *MemoryStore) Validate(ctx context.Context, fp Fingerprint, hashes []string) (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return false, "cache is empty"
	}
	if m.fingerprint != fp {
		return false, fmt.Sprintf("embedding space changed: %+v → %+v", m.fingerprint, fp)
	}

	cached := make(map[string]bool, len(m.entries))
	for h := range m.entries {
		cached[h] = true
	}
	return compareHashes(cached, hashes)
}

// Load returns copies of all entries
func (m *MemoryStore) Load(ctx context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		entries = append(entries, Entry{Hash: e.Hash, Mode: e.Mode, Vector: vec})
	}
	return entries, nil
}

// Save replaces all entries
func (m *MemoryStore) Save(ctx context.Context, fp Fingerprint, entries []Entry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]Entry, len(entries))
	for _, e := range entries {
		m.entries[e.Hash] = e
	}
	m.fingerprint = fp

	return nil
}

// Clear removes all entries
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]Entry)
	m.fingerprint = Fingerprint{}

	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
