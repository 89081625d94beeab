package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conversationJSON = `[
  {"conversation": [
    {"role": "user", "content": "When do classes start?"},
    {"role": "assistant", "content": "August 25"}
  ]},
  {"category": "tuition", "conversation": [
    {"role": "user", "content": "Tuition cost?"},
    {"role": "assistant", "content": "$12000/year"}
  ]}
]`

func TestLoadConversationJSON(t *testing.T) {
	store, err := Load(strings.NewReader(conversationJSON), FormatJSON)
	require.NoError(t, err)

	docs := store.All()
	require.Len(t, docs, 2)

	assert.Equal(t, 0, docs[0].ID)
	assert.Equal(t, DefaultCategory, docs[0].Category)
	assert.Equal(t, "Q: When do classes start?\nA: August 25", docs[0].Text())

	assert.Equal(t, 1, docs[1].ID)
	assert.Equal(t, "tuition", docs[1].Category)
	assert.Equal(t, "Q: Tuition cost?\nA: $12000/year", docs[1].Text())
}

func TestLoadFlatYAML(t *testing.T) {
	src := `
- category: courses
  question: What CS courses are available?
  answer: CIS 101 through CIS 499.
- category: housing
  question: Where do freshmen live?
  answer: In the residence halls.
`
	store, err := Load(strings.NewReader(src), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, 2, store.Count())
	assert.Equal(t, []string{"courses", "housing"}, store.Categories())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		format  Format
		wantErr error
	}{
		{"not parseable", `{"oops":`, FormatJSON, ErrMalformedSource},
		{"object instead of list", `{"question": "q", "answer": "a"}`, FormatJSON, ErrMalformedSource},
		{"missing answer", `[{"question": "q"}]`, FormatJSON, ErrMalformedSource},
		{"missing question", `[{"answer": "a"}]`, FormatJSON, ErrMalformedSource},
		{"blank question", `[{"question": "   ", "answer": "a"}]`, FormatJSON, ErrMalformedSource},
		{"short conversation", `[{"conversation": [{"content": "q"}]}]`, FormatJSON, ErrMalformedSource},
		{"unknown format", `[]`, Format("toml"), ErrMalformedSource},
		{"empty list", `[]`, FormatJSON, ErrEmptySource},
		{"empty yaml", ``, FormatYAML, ErrEmptySource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src), tt.format)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMalformedErrorNamesRecord(t *testing.T) {
	_, err := Load(strings.NewReader(`[{"question": "q", "answer": "a"}, {"question": "q2"}]`), FormatJSON)
	require.ErrorIs(t, err, ErrMalformedSource)
	assert.Contains(t, err.Error(), "record 1")
}

func TestByID(t *testing.T) {
	store, err := Load(strings.NewReader(conversationJSON), FormatJSON)
	require.NoError(t, err)

	doc, err := store.ByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Tuition cost?", doc.Question)

	_, err = store.ByID(2)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ByID(-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllReturnsCopy(t *testing.T) {
	store, err := Load(strings.NewReader(conversationJSON), FormatJSON)
	require.NoError(t, err)

	docs := store.All()
	docs[0].Answer = "changed"

	doc, err := store.ByID(0)
	require.NoError(t, err)
	assert.Equal(t, "August 25", doc.Answer)
}

func TestHashIsContentBased(t *testing.T) {
	a := Document{ID: 0, Question: "q", Answer: "a"}
	b := Document{ID: 7, Category: "other", Question: "q", Answer: "a"}
	c := Document{ID: 0, Question: "q", Answer: "b"}

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(conversationJSON), 0644))

	store, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count())
	assert.Len(t, store.Hashes(), 2)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("kb.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("KB.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("data.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("data"))
}
