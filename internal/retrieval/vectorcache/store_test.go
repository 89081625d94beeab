package vectorcache

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval/embeddings"
)

var testFingerprint = Fingerprint{Provider: "nim", Model: "nvidia/nv-embedqa-e5-v5", Dimensions: 2}

func testEntries() []Entry {
	return []Entry{
		{Hash: "aaaa", Mode: embeddings.ModePassage, Vector: []float32{1, 0}},
		{Hash: "bbbb", Mode: embeddings.ModePassage, Vector: []float32{0, 1}},
	}
}

// storeFactories runs every test against both implementations
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "cache", "embeddings.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()

			require.NoError(t, store.Save(ctx, testFingerprint, testEntries()))

			entries, err := store.Load(ctx)
			require.NoError(t, err)
			sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })
			assert.Equal(t, testEntries(), entries)
		})
	}
}

func TestStoreSaveAcceptsRepeatedHashes(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()

			entries := append(testEntries(), Entry{Hash: "aaaa", Mode: embeddings.ModePassage, Vector: []float32{1, 0}})
			require.NoError(t, store.Save(ctx, testFingerprint, entries))

			ok, reason := store.Validate(ctx, testFingerprint, []string{"aaaa", "bbbb", "aaaa"})
			assert.True(t, ok, reason)

			loaded, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, loaded, 2)
		})
	}
}

func TestStoreValidate(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()

			ok, reason := store.Validate(ctx, testFingerprint, []string{"aaaa", "bbbb"})
			assert.False(t, ok)
			assert.Equal(t, "cache is empty", reason)

			require.NoError(t, store.Save(ctx, testFingerprint, testEntries()))

			ok, reason = store.Validate(ctx, testFingerprint, []string{"bbbb", "aaaa"})
			assert.True(t, ok, reason)

			ok, reason = store.Validate(ctx, testFingerprint, []string{"aaaa"})
			assert.False(t, ok)
			assert.Contains(t, reason, "removed or modified")

			ok, reason = store.Validate(ctx, testFingerprint, []string{"aaaa", "bbbb", "cccc"})
			assert.False(t, ok)
			assert.Contains(t, reason, "new document")

			changed := testFingerprint
			changed.Model = "other-model"
			ok, _ = store.Validate(ctx, changed, []string{"aaaa", "bbbb"})
			assert.False(t, ok)

			changed = testFingerprint
			changed.Dimensions = 1024
			ok, _ = store.Validate(ctx, changed, []string{"aaaa", "bbbb"})
			assert.False(t, ok)
		})
	}
}

func TestStoreRejectsQueryVectors(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			err := store.Save(context.Background(), testFingerprint, []Entry{
				{Hash: "q", Mode: embeddings.ModeQuery, Vector: []float32{1}},
			})
			require.ErrorContains(t, err, "only passage embeddings")
		})
	}
}

func TestStoreClear(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()

			require.NoError(t, store.Save(ctx, testFingerprint, testEntries()))
			require.NoError(t, store.Clear(ctx))

			entries, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)

			ok, _ := store.Validate(ctx, testFingerprint, []string{"aaaa", "bbbb"})
			assert.False(t, ok)
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "embeddings.db")

	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, testFingerprint, testEntries()))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	ok, reason := reopened.Validate(ctx, testFingerprint, []string{"aaaa", "bbbb"})
	assert.True(t, ok, reason)

	indexedAt, err := reopened.IndexTime(ctx)
	require.NoError(t, err)
	assert.False(t, indexedAt.IsZero())
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.0e-7}
	decoded, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	require.Error(t, err)
}
