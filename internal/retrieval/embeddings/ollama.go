package embeddings

import (
	"context"
	"fmt"
	"strings"
)

const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "nomic-embed-text"
)

// OllamaEmbedder implements Embedder using Ollama's local API.
// Query and passage modes are expressed with nomic task prefixes.
type OllamaEmbedder struct {
	baseURL string
	model   string
	dims    int
	transport
}

type ollamaRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder creates a new Ollama embedder
func NewOllamaEmbedder(cfg Config) (*OllamaEmbedder, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}

	// Determine dimensions based on model
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 768 // nomic-embed-text
		if model == "mxbai-embed-large" {
			dims = 1024
		}
	}

	return &OllamaEmbedder{
		baseURL:   baseURL,
		model:     model,
		dims:      dims,
		transport: newTransport(cfg),
	}, nil
}

// Embed generates an embedding for a single text
func (o *OllamaEmbedder) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	var prefix string
	switch mode {
	case ModeQuery:
		prefix = "search_query: "
	case ModePassage:
		prefix = "search_document: "
	default:
		return nil, fmt.Errorf("invalid embedding mode %q", mode)
	}

	reqBody := ollamaRequest{
		Model: o.model,
		Input: prefix + text,
	}

	var result ollamaResponse
	if err := o.post(ctx, "ollama embed", o.baseURL+"/api/embed", nil, reqBody, &result); err != nil {
		return nil, err
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return result.Embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (o *OllamaEmbedder) Dimensions() int {
	return o.dims
}

// Name returns the model name
func (o *OllamaEmbedder) Name() string {
	return fmt.Sprintf("ollama/%s", o.model)
}
