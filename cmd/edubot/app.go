package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/assistant"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/config"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/generation"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/knowledge"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/logging"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/metrics"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/resilience"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval/embeddings"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval/vectorcache"
)

// app holds the wired components shared by the commands
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	knowledge *knowledge.Store
	cache     vectorcache.Store
	retriever *retrieval.Retriever
}

// loadConfig resolves configuration and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if knowledgePath != "" {
		cfg.KnowledgePath = knowledgePath
	}
	return cfg, nil
}

// newApp loads the knowledge base and prepares an unbuilt retriever
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(debug)
	m := metrics.New()

	store, err := knowledge.LoadFile(cfg.KnowledgePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	logger.Debug("knowledge base loaded",
		zap.String("path", cfg.KnowledgePath),
		zap.Int("documents", store.Count()),
	)

	embedder, err := embeddings.NewEmbedder(embeddings.Config{
		Provider:   cfg.EmbeddingProvider,
		BaseURL:    cfg.EmbeddingEndpoint,
		APIKey:     cfg.APIKey,
		Model:      cfg.EmbeddingModel,
		Resilience: resilience.DefaultConfig(),
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	var cache vectorcache.Store
	if noCache {
		cache = vectorcache.NewMemoryStore()
	} else {
		sqlStore, err := vectorcache.OpenSQLiteStore(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedding cache: %w", err)
		}
		cache = sqlStore
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		knowledge: store,
		cache:     cache,
		retriever: retrieval.New(embedder, retrieval.Options{
			Concurrency: cfg.Concurrency,
			Cache:       cache,
			Logger:      logger,
			Metrics:     m,
		}),
	}, nil
}

// buildIndex embeds the knowledge base, reusing cached vectors
func (a *app) buildIndex(ctx context.Context) error {
	start := time.Now()
	if err := a.retriever.BuildIndex(ctx, a.knowledge.All()); err != nil {
		return fmt.Errorf("failed to index knowledge base: %w", err)
	}
	a.logger.Debug("index built", zap.Duration("took", time.Since(start)))
	return nil
}

// newAssistant wires the generator; it needs an NVIDIA API key whatever the embedding provider
func (a *app) newAssistant() (*assistant.Assistant, error) {
	nim, err := generation.NewNIMGenerator(generation.Config{
		BaseURL:    a.cfg.LLMEndpoint,
		APIKey:     a.cfg.APIKey,
		Model:      a.cfg.LLMModel,
		Resilience: resilience.DefaultConfig(),
		Logger:     a.logger,
		Metrics:    a.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	return assistant.New(a.retriever, generation.NewCachedGenerator(nim, 0), assistant.Config{
		TopK:     a.cfg.TopK,
		MinScore: a.cfg.MinScore,
		Logger:   a.logger,
	}), nil
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close embedding cache", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// describeError adds a hint for the failures users can fix themselves
func describeError(err error) error {
	var statusErr *resilience.StatusError
	switch {
	case errors.As(err, &statusErr) && (statusErr.StatusCode == 401 || statusErr.StatusCode == 403):
		return fmt.Errorf("%w\ncheck NVIDIA_API_KEY or run 'edubot configure'", err)
	case resilience.IsCircuitOpen(err):
		return fmt.Errorf("%w\nthe service is failing repeatedly, try again shortly", err)
	default:
		return err
	}
}
