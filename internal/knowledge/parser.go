package knowledge

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the structured encoding of a knowledge base source
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the source format from a file extension.
// Anything that isn't .yaml/.yml is treated as JSON.
func FormatFromPath(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}

// Turn is one message of a recorded conversation
type Turn struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Record is the raw shape of one knowledge base entry.
// Either Question/Answer or a Conversation of at least two turns must be present.
type Record struct {
	Category     string `json:"category" yaml:"category"`
	Question     string `json:"question" yaml:"question"`
	Answer       string `json:"answer" yaml:"answer"`
	Conversation []Turn `json:"conversation" yaml:"conversation"`
}

// Parser decodes knowledge base sources into documents
type Parser struct{}

// NewParser creates a new parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes all records from r and converts them to documents
func (p *Parser) Parse(r io.Reader, format Format) ([]Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read source: %v", ErrMalformedSource, err)
	}

	var records []Record
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &records)
	case FormatJSON, "":
		err = json.Unmarshal(data, &records)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrMalformedSource, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}

	docs := make([]Document, 0, len(records))
	for i, rec := range records {
		doc, err := p.toDocument(i, rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// toDocument validates a record against the required fields
func (p *Parser) toDocument(idx int, rec Record) (Document, error) {
	question := strings.TrimSpace(rec.Question)
	answer := strings.TrimSpace(rec.Answer)

	// Conversation records carry the question in turn 0 and the answer in turn 1
	if question == "" && answer == "" && len(rec.Conversation) > 0 {
		if len(rec.Conversation) < 2 {
			return Document{}, fmt.Errorf("%w: record %d: conversation needs at least 2 turns, got %d",
				ErrMalformedSource, idx, len(rec.Conversation))
		}
		question = strings.TrimSpace(rec.Conversation[0].Content)
		answer = strings.TrimSpace(rec.Conversation[1].Content)
	}

	if question == "" {
		return Document{}, fmt.Errorf("%w: record %d: missing question", ErrMalformedSource, idx)
	}
	if answer == "" {
		return Document{}, fmt.Errorf("%w: record %d: missing answer", ErrMalformedSource, idx)
	}

	category := strings.TrimSpace(rec.Category)
	if category == "" {
		category = DefaultCategory
	}

	return Document{
		ID:       idx,
		Category: category,
		Question: question,
		Answer:   answer,
	}, nil
}
