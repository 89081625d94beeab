package generation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/metrics"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/resilience"
)

const (
	// DefaultBaseURL is NVIDIA's hosted API catalog endpoint
	DefaultBaseURL = "https://integrate.api.nvidia.com/v1"

	// DefaultModel is the Nemotron chat model served by the catalog
	DefaultModel = "nvidia/llama-3.1-nemotron-nano-8b-v1"

	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
	defaultTopP        = 0.9
	defaultTimeout     = 60 * time.Second
)

// Config holds configuration for a NIM chat client.
// Zero values select the defaults above.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64

	Timeout time.Duration

	Resilience resilience.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// NIMGenerator implements Generator against an OpenAI-compatible chat completions endpoint
type NIMGenerator struct {
	cfg    Config
	client *http.Client
	guard  *resilience.Guard
	logger *zap.Logger
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TopP        float64   `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// NewNIMGenerator creates a chat client
func NewNIMGenerator(cfg Config) (*NIMGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("NVIDIA API key is required")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.TopP <= 0 {
		cfg.TopP = defaultTopP
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NIMGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		guard:  resilience.NewGuard("generation", cfg.Resilience, logger, cfg.Metrics),
		logger: logger.Named("generation"),
	}, nil
}

// Generate answers a single prompt with context
func (g *NIMGenerator) Generate(ctx context.Context, prompt string, passages []string) (string, error) {
	return g.Chat(ctx, Request{Question: prompt, Context: passages})
}

// Chat sends the assembled conversation and returns the model's reply
func (g *NIMGenerator) Chat(ctx context.Context, req Request) (string, error) {
	payload := chatRequest{
		Model:       g.cfg.Model,
		Messages:    BuildMessages(req),
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
		TopP:        g.cfg.TopP,
	}
	headers := map[string]string{"Authorization": "Bearer " + g.cfg.APIKey}

	g.logger.Debug("sending chat completion",
		zap.String("model", g.cfg.Model),
		zap.Int("messages", len(payload.Messages)),
		zap.Int("context_passages", len(req.Context)),
	)

	start := time.Now()
	var result chatResponse
	err := g.guard.Call(ctx, func(ctx context.Context) error {
		return resilience.PostJSON(ctx, g.client, g.cfg.BaseURL+"/chat/completions", headers, payload, &result, "chat completions")
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationService, err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", ErrGenerationService)
	}

	answer := strings.TrimSpace(result.Choices[0].Message.Content)
	g.logger.Debug("chat completion received",
		zap.Int("chars", len(answer)),
		zap.Duration("took", time.Since(start)),
	)
	return answer, nil
}
