package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/generation"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval"
)

// DefaultMinScore drops retrieved passages that are too weakly related to the question
const DefaultMinScore = 0.3

// ErrEmptyQuestion is returned for blank questions
var ErrEmptyQuestion = errors.New("please enter a question")

// Searcher ranks knowledge base documents against a question
type Searcher interface {
	Query(ctx context.Context, text string, k int) (retrieval.Result, error)
}

// Config tunes retrieval for answers
type Config struct {
	TopK     int
	MinScore float64
	Logger   *zap.Logger
}

// DefaultConfig returns the retrieval settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		TopK:     retrieval.DefaultTopK,
		MinScore: DefaultMinScore,
	}
}

// Options are per-question settings
type Options struct {
	// UseRAG retrieves knowledge base context before generating
	UseRAG bool

	// TopK overrides Config.TopK when positive
	TopK int

	// History is the conversation so far, oldest first
	History []generation.Message
}

// Answer is the generated reply with the passages it was grounded on
type Answer struct {
	Text    string
	Sources []retrieval.Match
}

// Assistant answers student questions from the knowledge base and a hosted model
type Assistant struct {
	searcher  Searcher
	generator generation.Generator
	cfg       Config
	logger    *zap.Logger
}

// New creates an assistant. A zero TopK falls back to retrieval.DefaultTopK.
func New(searcher Searcher, generator generation.Generator, cfg Config) *Assistant {
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assistant{
		searcher:  searcher,
		generator: generator,
		cfg:       cfg,
		logger:    logger.Named("assistant"),
	}
}

// Ask answers question, optionally grounding the answer on retrieved passages
func (a *Assistant) Ask(ctx context.Context, question string, opts Options) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	var sources []retrieval.Match
	if opts.UseRAG {
		matches, err := a.Retrieve(ctx, question, opts.TopK)
		switch {
		case errors.Is(err, retrieval.ErrIndexNotReady):
			a.logger.Warn("knowledge base not indexed, answering without context")
		case err != nil:
			return nil, err
		default:
			sources = matches
		}
	}

	passages := make([]string, len(sources))
	for i, m := range sources {
		passages[i] = m.Document.Text()
	}

	text, err := a.generator.Chat(ctx, generation.Request{
		Question: question,
		Context:  passages,
		History:  opts.History,
	})
	if err != nil {
		return nil, err
	}

	return &Answer{Text: text, Sources: sources}, nil
}

// Retrieve returns the top matches that clear the relevance threshold
func (a *Assistant) Retrieve(ctx context.Context, question string, k int) ([]retrieval.Match, error) {
	if k <= 0 {
		k = a.cfg.TopK
	}

	result, err := a.searcher.Query(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	var relevant []retrieval.Match
	for _, m := range result {
		if m.Score > a.cfg.MinScore {
			relevant = append(relevant, m)
		}
	}

	for i, m := range relevant {
		a.logger.Debug("retrieved document",
			zap.Int("rank", i+1),
			zap.Int("id", m.Document.ID),
			zap.String("category", m.Document.Category),
			zap.Float64("score", m.Score),
		)
	}
	return relevant, nil
}
