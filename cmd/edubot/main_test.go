package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/assistant"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/generation"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/history"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/knowledge"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/resilience"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"index", "ask", "chat", "search", "list", "configure"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"debug", "config", "knowledge", "no-cache"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestIsExit(t *testing.T) {
	for _, input := range []string{"exit", " Quit ", "BYE"} {
		assert.True(t, isExit(input), input)
	}
	assert.False(t, isExit("exit exam dates?"))
}

func TestOpenSession(t *testing.T) {
	hist := &history.History{}
	saved := hist.NewSession(true)
	saved.Add("user", "Where is the library?")

	resumed, err := openSession(hist, saved.ID, true)
	require.NoError(t, err)
	assert.Same(t, saved, resumed)
	assert.Len(t, hist.Sessions, 1)

	fresh, err := openSession(hist, "", false)
	require.NoError(t, err)
	assert.NotEqual(t, saved.ID, fresh.ID)
	assert.Len(t, hist.Sessions, 2)

	_, err = openSession(hist, "missing", true)
	require.ErrorContains(t, err, "no saved conversation")
}

func TestToMessages(t *testing.T) {
	msgs := toMessages([]history.Message{
		{Role: "user", Content: "When do classes start?"},
		{Role: "assistant", Content: "August 25"},
	})

	assert.Equal(t, []generation.Message{
		{Role: generation.RoleUser, Content: "When do classes start?"},
		{Role: generation.RoleAssistant, Content: "August 25"},
	}, msgs)
}

func TestRemoveSession(t *testing.T) {
	sessions := []*history.Session{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	kept := removeSession(sessions, "b")

	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].ID)
	assert.Equal(t, "c", kept[1].ID)
}

func TestQuestionFromArgs(t *testing.T) {
	question, err := questionFromArgs([]string{"When", "do", "classes", "start?"})
	require.NoError(t, err)
	assert.Equal(t, "When do classes start?", question)

	for _, args := range [][]string{{""}, {"  ", "\t"}} {
		_, err := questionFromArgs(args)
		assert.ErrorIs(t, err, assistant.ErrEmptyQuestion)
	}
}

func TestAskRejectsBlankQuestionBeforeLoading(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	root := newRootCmd()
	root.SetArgs([]string{"ask", "--knowledge", missing, "   "})
	root.SetOut(io.Discard)

	err := root.Execute()
	require.ErrorIs(t, err, assistant.ErrEmptyQuestion)
}

func TestCategoryCounts(t *testing.T) {
	counts := categoryCounts([]knowledge.Document{
		{Category: "admissions"}, {Category: "courses"}, {Category: "admissions"},
	})
	assert.Equal(t, map[string]int{"admissions": 2, "courses": 1}, counts)
}

func TestDescribeError(t *testing.T) {
	auth := fmt.Errorf("embedding: %w", &resilience.StatusError{Operation: "embeddings", StatusCode: http.StatusUnauthorized})
	assert.Contains(t, describeError(auth).Error(), "edubot configure")

	open := fmt.Errorf("embedding: %w", gobreaker.ErrOpenState)
	assert.Contains(t, describeError(open).Error(), "try again shortly")

	plain := errors.New("boom")
	assert.Equal(t, plain, describeError(plain))
}

type stubSearcher struct {
	result retrieval.Result
	err    error
	calls  int
}

func (s *stubSearcher) Query(ctx context.Context, text string, k int) (retrieval.Result, error) {
	s.calls++
	return s.result, s.err
}

type recordingGenerator struct {
	requests []generation.Request
	err      error
}

func (r *recordingGenerator) Generate(ctx context.Context, prompt string, passages []string) (string, error) {
	return r.Chat(ctx, generation.Request{Question: prompt, Context: passages})
}

func (r *recordingGenerator) Chat(ctx context.Context, req generation.Request) (string, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return "", r.err
	}
	return "The library is in Building C.", nil
}

func newTestChat(searcher assistant.Searcher, gen generation.Generator) *chatSession {
	hist := &history.History{}
	return &chatSession{
		bot:     assistant.New(searcher, gen, assistant.DefaultConfig()),
		hist:    hist,
		session: hist.NewSession(true),
		useRAG:  true,
		logger:  zap.NewNop(),
	}
}

func TestChatAnswersWithoutContextWhenEmbeddingFails(t *testing.T) {
	searcher := &stubSearcher{err: fmt.Errorf("%w: query: connection refused", retrieval.ErrEmbeddingService)}
	gen := &recordingGenerator{}
	chat := newTestChat(searcher, gen)

	answer, err := chat.ask(context.Background(), "Where is the library?")
	require.NoError(t, err)
	assert.Equal(t, "The library is in Building C.", answer.Text)
	assert.Empty(t, answer.Sources)

	assert.Equal(t, 1, searcher.calls)
	require.Len(t, gen.requests, 1)
	assert.Empty(t, gen.requests[0].Context)
	assert.Equal(t, "Where is the library?", gen.requests[0].Question)

	require.Len(t, chat.session.Messages, 2)
	assert.Equal(t, "user", chat.session.Messages[0].Role)
	assert.Equal(t, "Where is the library?", chat.session.Messages[0].Content)
	assert.Equal(t, "assistant", chat.session.Messages[1].Role)
	assert.Equal(t, "The library is in Building C.", chat.session.Messages[1].Content)
}

func TestChatPassesHistoryToFollowUps(t *testing.T) {
	searcher := &stubSearcher{result: retrieval.Result{{
		Document: knowledge.Document{ID: 0, Question: "Where is the library?", Answer: "Building C"},
		Score:    0.9,
	}}}
	gen := &recordingGenerator{}
	chat := newTestChat(searcher, gen)

	_, err := chat.ask(context.Background(), "Where is the library?")
	require.NoError(t, err)
	_, err = chat.ask(context.Background(), "When does it open?")
	require.NoError(t, err)

	require.Len(t, gen.requests, 2)
	assert.Equal(t, []string{"Q: Where is the library?\nA: Building C"}, gen.requests[0].Context)
	assert.Empty(t, gen.requests[0].History)
	require.Len(t, gen.requests[1].History, 2)
	assert.Equal(t, generation.RoleUser, gen.requests[1].History[0].Role)
	assert.Len(t, chat.session.Messages, 4)
}

func TestChatRecordsHistoryOnlyOnSuccess(t *testing.T) {
	t.Run("generation failure", func(t *testing.T) {
		gen := &recordingGenerator{err: fmt.Errorf("%w: status 503", generation.ErrGenerationService)}
		chat := newTestChat(&stubSearcher{}, gen)

		_, err := chat.ask(context.Background(), "Where is the library?")
		require.ErrorIs(t, err, generation.ErrGenerationService)
		assert.Empty(t, chat.session.Messages)
	})

	t.Run("retrieval failure other than embedding", func(t *testing.T) {
		searcher := &stubSearcher{err: retrieval.ErrInvalidTopK}
		gen := &recordingGenerator{}
		chat := newTestChat(searcher, gen)

		_, err := chat.ask(context.Background(), "Where is the library?")
		require.ErrorIs(t, err, retrieval.ErrInvalidTopK)
		assert.Empty(t, gen.requests)
		assert.Empty(t, chat.session.Messages)
	})
}
