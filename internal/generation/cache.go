package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of answers a CachedGenerator keeps
const DefaultCacheSize = 256

// CachedGenerator memoises answers by question and context.
// History is not part of the key, so a repeated question with the same context is answered from memory.
type CachedGenerator struct {
	inner   Generator
	answers *lru.Cache[string, string]
}

// NewCachedGenerator wraps inner with an LRU answer cache of at most size entries
func NewCachedGenerator(inner Generator, size int) *CachedGenerator {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size
	answers, _ := lru.New[string, string](size)
	return &CachedGenerator{inner: inner, answers: answers}
}

// Generate returns a cached answer or asks the wrapped generator
func (c *CachedGenerator) Generate(ctx context.Context, prompt string, passages []string) (string, error) {
	key := cacheKey(prompt, passages)
	if answer, ok := c.answers.Get(key); ok {
		return answer, nil
	}

	answer, err := c.inner.Generate(ctx, prompt, passages)
	if err != nil {
		return "", err
	}
	c.answers.Add(key, answer)
	return answer, nil
}

// Chat returns a cached answer or asks the wrapped generator
func (c *CachedGenerator) Chat(ctx context.Context, req Request) (string, error) {
	key := cacheKey(req.Question, req.Context)
	if answer, ok := c.answers.Get(key); ok {
		return answer, nil
	}

	answer, err := c.inner.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	c.answers.Add(key, answer)
	return answer, nil
}

// Len returns the number of cached answers
func (c *CachedGenerator) Len() int {
	return c.answers.Len()
}

func cacheKey(question string, context []string) string {
	sum := sha256.Sum256([]byte(question + "\x00" + strings.Join(context, "\n\n")))
	return hex.EncodeToString(sum[:])
}
