package assistant

import (
	"fmt"
	"strings"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval"
)

const snippetLength = 200

// FormatSources renders the retrieved passages with their relevance scores.
// It returns "" when there are no sources.
func FormatSources(sources []retrieval.Match) string {
	if len(sources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Retrieved Context:\n")
	for i, m := range sources {
		fmt.Fprintf(&b, "\n%d. (Relevance: %.2f)\n%s\n", i+1, m.Score, Snippet(m.Document.Text(), snippetLength))
	}
	return b.String()
}

// Snippet shortens text to at most n runes, marking the cut with "..."
func Snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
