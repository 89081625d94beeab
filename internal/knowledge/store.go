package knowledge

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrMalformedSource is returned when the source can't be parsed or a record is missing required fields
	ErrMalformedSource = errors.New("malformed knowledge source")

	// ErrEmptySource is returned when the source contains no documents
	ErrEmptySource = errors.New("empty knowledge source")

	// ErrNotFound is returned by ByID for unknown document IDs
	ErrNotFound = errors.New("document not found")
)

// Store is a read-only, ordered collection of documents
type Store struct {
	docs []Document
}

// Load parses a structured source into a store
func Load(r io.Reader, format Format) (*Store, error) {
	docs, err := NewParser().Parse(r, format)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, ErrEmptySource
	}

	return &Store{docs: docs}, nil
}

// LoadFile loads a knowledge base from a JSON or YAML file
func LoadFile(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer file.Close()

	store, err := Load(file, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return store, nil
}

// All returns the full ordered sequence of documents
func (s *Store) All() []Document {
	// Return a copy to prevent external modification
	docs := make([]Document, len(s.docs))
	copy(docs, s.docs)
	return docs
}

// ByID returns the document with the given ID
func (s *Store) ByID(id int) (Document, error) {
	// IDs are source positions, so a direct lookup is enough
	if id < 0 || id >= len(s.docs) {
		return Document{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.docs[id], nil
}

// Count returns the number of documents
func (s *Store) Count() int {
	return len(s.docs)
}

// Categories returns the distinct categories in first-seen order
func (s *Store) Categories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, doc := range s.docs {
		if !seen[doc.Category] {
			seen[doc.Category] = true
			categories = append(categories, doc.Category)
		}
	}
	return categories
}

// Hashes returns the content hash of every document in source order
func (s *Store) Hashes() []string {
	hashes := make([]string, len(s.docs))
	for i, doc := range s.docs {
		hashes[i] = doc.Hash()
	}
	return hashes
}
