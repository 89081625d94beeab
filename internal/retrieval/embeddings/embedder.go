package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/metrics"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/resilience"
)

// Mode selects the embedding projection of an asymmetric retrieval model
type Mode string

const (
	// ModeQuery embeds search queries
	ModeQuery Mode = "query"

	// ModePassage embeds corpus documents
	ModePassage Mode = "passage"
)

// Provider names accepted by NewEmbedder
const (
	ProviderNIM    = "nim"
	ProviderOllama = "ollama"
)

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates an embedding vector for a single text in the given mode
	Embed(ctx context.Context, text string, mode Mode) ([]float32, error)

	// Dimensions returns the nominal size of the embedding vectors
	Dimensions() int

	// Name returns the provider/model of this embedder
	Name() string
}

// Config holds configuration for creating an embedder
type Config struct {
	Provider string

	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int

	// Timeout bounds a single HTTP request. Zero means 30s.
	Timeout time.Duration

	Resilience resilience.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// NewEmbedder creates an embedder based on the config
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderNIM, "":
		return NewNIMEmbedder(cfg)
	case ProviderOllama:
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// transport carries the pieces every HTTP embedder shares
type transport struct {
	client *http.Client
	guard  *resilience.Guard
	logger *zap.Logger
}

func newTransport(cfg Config) transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return transport{
		client: &http.Client{Timeout: timeout},
		guard:  resilience.NewGuard("embeddings", cfg.Resilience, logger, cfg.Metrics),
		logger: logger,
	}
}

// post runs one logical embedding call through the embeddings guard
func (t transport) post(ctx context.Context, operation, url string, headers map[string]string, payload, out any) error {
	return t.guard.Call(ctx, func(ctx context.Context) error {
		return resilience.PostJSON(ctx, t.client, url, headers, payload, out, operation)
	})
}
