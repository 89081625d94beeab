package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/assistant"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/knowledge"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/ui"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ui.ShowSection("Indexing Knowledge Base", "")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if forceReindex {
		ui.ShowInfo("Force reindexing (--force flag)")
		if err := a.cache.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear embedding cache: %w", err)
		}
	}

	ui.ShowInfo(fmt.Sprintf("Embedding %d documents from %s...", a.knowledge.Count(), a.cfg.KnowledgePath))
	start := time.Now()
	if err := a.buildIndex(ctx); err != nil {
		return describeError(err)
	}

	ui.ShowSuccess(fmt.Sprintf("Indexed %d documents (%d dimensions) in %s",
		a.retriever.Size(), a.retriever.Dimensions(), time.Since(start).Round(time.Millisecond)))

	fmt.Println()
	ui.ShowInfo("Documents by category:")
	counts := categoryCounts(a.knowledge.All())
	for _, category := range a.knowledge.Categories() {
		fmt.Printf("  • %s (%d)\n", category, counts[category])
	}

	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	// reject blank input before paying for an index build
	question, err := questionFromArgs(args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	useRAG := a.cfg.UseRAG && !noRAG
	if useRAG {
		if err := a.buildIndex(ctx); err != nil {
			return describeError(err)
		}
	}

	bot, err := a.newAssistant()
	if err != nil {
		return err
	}

	answer, err := bot.Ask(ctx, question, assistant.Options{UseRAG: useRAG, TopK: topK})
	if err != nil {
		return describeError(err)
	}

	fmt.Println(answer.Text)
	if showSources && len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Print(assistant.FormatSources(answer.Sources))
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := questionFromArgs(args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.buildIndex(ctx); err != nil {
		return describeError(err)
	}

	k := topK
	if k <= 0 {
		k = a.cfg.TopK
	}

	result, err := a.retriever.Query(ctx, query, k)
	if err != nil {
		return describeError(err)
	}

	for i, m := range result {
		marker := " "
		if m.Score > a.cfg.MinScore {
			marker = "✓"
		}
		fmt.Printf("%s %d. [%.3f] #%d %s (%s)\n", marker, i+1, m.Score, m.Document.ID, m.Document.Question, m.Document.Category)
		fmt.Printf("     %s\n", assistant.Snippet(m.Document.Answer, 120))
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := knowledge.LoadFile(cfg.KnowledgePath)
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	byCategory := make(map[string][]knowledge.Document)
	for _, doc := range store.All() {
		byCategory[doc.Category] = append(byCategory[doc.Category], doc)
	}

	ui.ShowSection(fmt.Sprintf("Knowledge Base (%d documents)", store.Count()), cfg.KnowledgePath)
	for _, category := range store.Categories() {
		fmt.Printf("\n%s:\n", category)
		for _, doc := range byCategory[category] {
			fmt.Printf("  [%d] %s\n", doc.ID, doc.Question)
		}
	}
	return nil
}

// questionFromArgs joins positional args into one question
func questionFromArgs(args []string) (string, error) {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return "", assistant.ErrEmptyQuestion
	}
	return question, nil
}

func categoryCounts(docs []knowledge.Document) map[string]int {
	counts := make(map[string]int)
	for _, doc := range docs {
		counts[doc.Category]++
	}
	return counts
}
