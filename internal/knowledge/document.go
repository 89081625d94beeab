package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DefaultCategory is used for records that don't carry a category tag
const DefaultCategory = "general"

// Document represents a single question/answer entry in the knowledge base
type Document struct {
	ID       int    // Position in the source collection
	Category string // Category tag (e.g., courses, admissions)
	Question string
	Answer   string
}

// Text returns the passage text used for embedding
func (d Document) Text() string {
	return fmt.Sprintf("Q: %s\nA: %s", d.Question, d.Answer)
}

// Hash returns the content hash of the document's passage text.
// Embedding cache entries are keyed by this value, not by ID.
func (d Document) Hash() string {
	sum := sha256.Sum256([]byte(d.Text()))
	return hex.EncodeToString(sum[:])
}
