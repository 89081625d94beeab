package embeddings

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultNIMBaseURL is NVIDIA's hosted API catalog endpoint
	DefaultNIMBaseURL = "https://integrate.api.nvidia.com/v1"

	// DefaultNIMModel is an asymmetric QA retrieval model with query/passage modes
	DefaultNIMModel = "nvidia/nv-embedqa-e5-v5"

	defaultNIMDimensions = 1024
)

// NIMEmbedder implements Embedder using an NVIDIA NIM (OpenAI-compatible) embeddings endpoint
type NIMEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	dims    int
	transport
}

type nimRequest struct {
	Input          string `json:"input"`
	Model          string `json:"model"`
	InputType      string `json:"input_type"`
	EncodingFormat string `json:"encoding_format"`
}

type nimResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewNIMEmbedder creates a new NIM embedder
func NewNIMEmbedder(cfg Config) (*NIMEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("NVIDIA API key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultNIMBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultNIMModel
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultNIMDimensions
	}

	return &NIMEmbedder{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		model:     model,
		dims:      dims,
		transport: newTransport(cfg),
	}, nil
}

// Embed generates an embedding for a single text
func (n *NIMEmbedder) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	if mode != ModeQuery && mode != ModePassage {
		return nil, fmt.Errorf("invalid embedding mode %q", mode)
	}

	reqBody := nimRequest{
		Input:          text,
		Model:          n.model,
		InputType:      string(mode),
		EncodingFormat: "float",
	}
	headers := map[string]string{"Authorization": "Bearer " + n.apiKey}

	var result nimResponse
	if err := n.post(ctx, "embeddings", n.baseURL+"/embeddings", headers, reqBody, &result); err != nil {
		return nil, err
	}

	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	n.logger.Debug("embedded text",
		zap.String("model", n.model),
		zap.String("mode", string(mode)),
		zap.Int("dims", len(result.Data[0].Embedding)),
	)

	return result.Data[0].Embedding, nil
}

// Dimensions returns the embedding dimension size
func (n *NIMEmbedder) Dimensions() int {
	return n.dims
}

// Name returns the model name
func (n *NIMEmbedder) Name() string {
	return fmt.Sprintf("nim/%s", n.model)
}
