package vectorcache

import (
	"context"
	"fmt"
	"sort"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval/embeddings"
)

// Store persists passage embeddings keyed by document content hash
type Store interface {
	// Validate reports whether the cached entries match the fingerprint and exactly the given hashes.
	// The reason explains a mismatch.
	Validate(ctx context.Context, fp Fingerprint, hashes []string) (bool, string)

	// Load returns every cached entry
	Load(ctx context.Context) ([]Entry, error)

	// Save replaces the cache contents with entries
	Save(ctx context.Context, fp Fingerprint, entries []Entry) error

	// Clear removes all entries
	Clear(ctx context.Context) error

	// Close releases resources held by the store
	Close() error
}

// Entry is one cached passage embedding
type Entry struct {
	Hash   string
	Mode   embeddings.Mode
	Vector []float32
}

// Fingerprint identifies the embedding space the cache was built in
type Fingerprint struct {
	Provider   string
	Model      string
	Dimensions int
}

// validateEntries enforces the invariants shared by every store
func validateEntries(entries []Entry) error {
	for _, e := range entries {
		if e.Mode != embeddings.ModePassage {
			return fmt.Errorf("only passage embeddings can be cached, got %q for %s", e.Mode, e.Hash)
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("empty vector for %s", e.Hash)
		}
	}
	return nil
}

// compareHashes checks that cached and expected hash sets are identical
func compareHashes(cached map[string]bool, expected []string) (bool, string) {
	expectedSet := make(map[string]bool, len(expected))
	for _, h := range expected {
		expectedSet[h] = true
	}

	// Report in a stable order so messages are reproducible
	var stale []string
	for h := range cached {
		if !expectedSet[h] {
			stale = append(stale, h)
		}
	}
	if len(stale) > 0 {
		sort.Strings(stale)
		return false, fmt.Sprintf("document removed or modified: %s", short(stale[0]))
	}

	for _, h := range expected {
		if !cached[h] {
			return false, fmt.Sprintf("new document added: %s", short(h))
		}
	}

	return true, ""
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
