package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/knowledge"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/metrics"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval/embeddings"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval/vectorcache"
)

// DefaultTopK is the number of matches returned when the caller has no preference
const DefaultTopK = 3

// DefaultConcurrency bounds parallel embedding calls during a build
const DefaultConcurrency = 4

var (
	// ErrEmbeddingService wraps any failure of the embedding collaborator
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrIndexNotReady is returned by Query before the first successful build
	ErrIndexNotReady = errors.New("index not ready")

	// ErrInvalidTopK is returned for a non-positive k
	ErrInvalidTopK = errors.New("k must be a positive integer")

	// ErrDimensionMismatch is wrapped inside ErrEmbeddingService when vectors disagree in length
	ErrDimensionMismatch = errors.New("embedding dimensionality mismatch")
)

// State is the lifecycle state of a Retriever
type State int

const (
	NotReady State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "not ready"
}

// Match is one ranked document
type Match struct {
	Document knowledge.Document
	Score    float64
}

// Result is a ranked list of matches, best first
type Result []Match

// Options configures a Retriever
type Options struct {
	// Concurrency bounds parallel embedding calls. Zero means DefaultConcurrency.
	Concurrency int

	// Cache, when set, persists passage vectors across runs
	Cache vectorcache.Store

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// index is an immutable snapshot served to queries
type index struct {
	docs       []knowledge.Document
	vectors    [][]float32
	dimensions int
}

// Retriever owns the passage vectors of a document collection and ranks documents against queries
type Retriever struct {
	embedder embeddings.Embedder
	opts     Options
	logger   *zap.Logger

	// guarded by buildMu
	buildMu sync.Mutex
	vectors map[string][]float32
	warmed  bool

	current atomic.Pointer[index]
}

// New creates a Retriever in the NotReady state
func New(embedder embeddings.Embedder, opts Options) *Retriever {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retriever{
		embedder: embedder,
		opts:     opts,
		logger:   logger.Named("retriever"),
		vectors:  make(map[string][]float32),
	}
}

// State reports whether queries can be served
func (r *Retriever) State() State {
	if r.current.Load() == nil {
		return NotReady
	}
	return Ready
}

// Size returns the number of indexed documents
func (r *Retriever) Size() int {
	if idx := r.current.Load(); idx != nil {
		return len(idx.docs)
	}
	return 0
}

// Dimensions returns the vector length of the current index, or 0 when not ready
func (r *Retriever) Dimensions() int {
	if idx := r.current.Load(); idx != nil {
		return idx.dimensions
	}
	return 0
}

// BuildIndex embeds every document not already cached and swaps in the new index.
// On failure the previous index, if any, keeps serving queries.
func (r *Retriever) BuildIndex(ctx context.Context, docs []knowledge.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("nothing to index: %w", knowledge.ErrEmptySource)
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	start := time.Now()

	if !r.warmed {
		r.warmStart(ctx, docs)
		r.warmed = true
	}

	staging := make([][]float32, len(docs))
	hashes := make([]string, len(docs))
	// identical documents share a hash and are embedded once
	var pending []int
	queued := make(map[string]bool)
	for i, doc := range docs {
		hashes[i] = doc.Hash()
		if vec, ok := r.vectors[hashes[i]]; ok {
			staging[i] = vec
			continue
		}
		if !queued[hashes[i]] {
			queued[hashes[i]] = true
			pending = append(pending, i)
		}
	}
	r.opts.Metrics.AddCacheLookups(len(docs)-len(pending), len(pending))

	r.logger.Debug("building index",
		zap.Int("documents", len(docs)),
		zap.Int("cached", len(docs)-len(pending)),
		zap.Int("to_embed", len(pending)),
	)

	if len(pending) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Concurrency)

		// each goroutine owns exactly one staging slot
		for _, i := range pending {
			i := i
			doc := docs[i]
			g.Go(func() error {
				vec, err := r.embedder.Embed(gctx, doc.Text(), embeddings.ModePassage)
				if err != nil {
					return fmt.Errorf("%w: document %d: %w", ErrEmbeddingService, doc.ID, err)
				}
				if len(vec) == 0 {
					return fmt.Errorf("%w: document %d: empty vector", ErrEmbeddingService, doc.ID)
				}
				staging[i] = vec
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			r.logger.Warn("index build failed, keeping previous index",
				zap.Stringer("state", r.State()),
				zap.Error(err),
			)
			return err
		}

		embedded := make(map[string][]float32, len(pending))
		for _, i := range pending {
			embedded[hashes[i]] = staging[i]
		}
		for i := range staging {
			if staging[i] == nil {
				staging[i] = embedded[hashes[i]]
			}
		}
	}

	dims := len(staging[0])
	for i, vec := range staging {
		if len(vec) != dims {
			return fmt.Errorf("%w: document %d has %d dimensions, expected %d: %w",
				ErrEmbeddingService, docs[i].ID, len(vec), dims, ErrDimensionMismatch)
		}
	}

	next := &index{
		docs:       append([]knowledge.Document(nil), docs...),
		vectors:    staging,
		dimensions: dims,
	}

	// the in-memory cache follows the collection; stale hashes are dropped
	vectors := make(map[string][]float32, len(docs))
	for i, h := range hashes {
		vectors[h] = staging[i]
	}
	r.vectors = vectors
	r.current.Store(next)

	r.opts.Metrics.SetIndexedDocuments(len(docs))
	r.logger.Info("index ready",
		zap.Int("documents", len(docs)),
		zap.Int("embedded", len(pending)),
		zap.Int("dimensions", dims),
		zap.Duration("took", time.Since(start)),
	)

	r.persist(ctx, next, hashes)

	return nil
}

// Query embeds text in query mode and returns the k most similar documents
func (r *Retriever) Query(ctx context.Context, text string, k int) (Result, error) {
	idx := r.current.Load()
	if idx == nil {
		return nil, ErrIndexNotReady
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}

	start := time.Now()
	defer func() { r.opts.Metrics.ObserveRetrieval(time.Since(start)) }()

	query, err := r.embedder.Embed(ctx, text, embeddings.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrEmbeddingService, err)
	}
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d: %w",
			ErrEmbeddingService, len(query), idx.dimensions, ErrDimensionMismatch)
	}

	return rank(idx, query, k), nil
}

// rank scores every document and keeps the top k, ties in source order
func rank(idx *index, query []float32, k int) Result {
	results := make(Result, len(idx.docs))
	for i, doc := range idx.docs {
		results[i] = Match{Document: doc, Score: cosineSimilarity(query, idx.vectors[i])}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// warmStart seeds the in-memory cache from the persisted store when it matches docs exactly
func (r *Retriever) warmStart(ctx context.Context, docs []knowledge.Document) {
	if r.opts.Cache == nil {
		return
	}

	hashes := make([]string, len(docs))
	for i, doc := range docs {
		hashes[i] = doc.Hash()
	}

	if ok, reason := r.opts.Cache.Validate(ctx, r.fingerprint(), hashes); !ok {
		r.logger.Info("embedding cache invalid, rebuilding", zap.String("reason", reason))
		if err := r.opts.Cache.Clear(ctx); err != nil {
			r.logger.Warn("failed to clear embedding cache", zap.Error(err))
		}
		return
	}

	entries, err := r.opts.Cache.Load(ctx)
	if err != nil {
		r.logger.Warn("failed to load embedding cache", zap.Error(err))
		return
	}

	for _, e := range entries {
		if e.Mode != embeddings.ModePassage {
			continue
		}
		r.vectors[e.Hash] = e.Vector
	}
	r.logger.Debug("embedding cache loaded", zap.Int("entries", len(entries)))
}

// persist writes the committed index through to the store; failures only warn
func (r *Retriever) persist(ctx context.Context, idx *index, hashes []string) {
	if r.opts.Cache == nil {
		return
	}

	entries := make([]vectorcache.Entry, 0, len(hashes))
	seen := make(map[string]bool, len(hashes))
	for i, h := range hashes {
		if seen[h] {
			continue
		}
		seen[h] = true
		entries = append(entries, vectorcache.Entry{Hash: h, Mode: embeddings.ModePassage, Vector: idx.vectors[i]})
	}

	if err := r.opts.Cache.Save(ctx, r.fingerprint(), entries); err != nil {
		r.logger.Warn("failed to persist embedding cache", zap.Error(err))
	}
}

// fingerprint identifies the embedding space from the embedder's "provider/model" name
func (r *Retriever) fingerprint() vectorcache.Fingerprint {
	provider, model, _ := strings.Cut(r.embedder.Name(), "/")
	return vectorcache.Fingerprint{
		Provider:   provider,
		Model:      model,
		Dimensions: r.embedder.Dimensions(),
	}
}
