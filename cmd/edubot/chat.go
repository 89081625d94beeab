package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/assistant"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/generation"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/history"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/ui"
)

// chatSession ties the assistant to one saved conversation
type chatSession struct {
	bot     *assistant.Assistant
	hist    *history.History
	session *history.Session
	useRAG  bool
	logger  *zap.Logger
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if metricsAddr != "" {
		stop := serveMetrics(a, metricsAddr)
		defer stop()
	}

	useRAG := a.cfg.UseRAG && !noRAG
	if useRAG {
		ui.ShowInfo(fmt.Sprintf("Loading knowledge base (%d documents)...", a.knowledge.Count()))
		if err := a.buildIndex(ctx); err != nil {
			return describeError(err)
		}
		ui.ShowSuccess(fmt.Sprintf("Knowledge base ready (%d documents)", a.retriever.Size()))
	}

	bot, err := a.newAssistant()
	if err != nil {
		return err
	}

	hist, err := history.Load()
	if err != nil {
		a.logger.Warn("failed to load chat history, starting fresh", zap.Error(err))
		hist = &history.History{}
	}

	session, err := openSession(hist, resumeID, useRAG)
	if err != nil {
		return err
	}

	chat := &chatSession{
		bot:     bot,
		hist:    hist,
		session: session,
		useRAG:  useRAG,
		logger:  a.logger,
	}
	defer chat.save()

	if !ui.IsInteractive() {
		return chat.runPiped(ctx, os.Stdin)
	}
	return chat.runInteractive(ctx)
}

// runPiped answers one question per input line
func (c *chatSession) runPiped(ctx context.Context, in *os.File) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}

		answer, err := c.ask(ctx, question)
		if err != nil {
			return describeError(err)
		}
		fmt.Println(answer.Text)
		fmt.Println()
	}
	return scanner.Err()
}

func (c *chatSession) runInteractive(ctx context.Context) error {
	ui.ShowSection("EDU Bot", "Ask about courses, admissions, campus life and more. Type 'exit' to quit.")
	ui.ShowInfo("Session " + c.session.ID + " (continue later with --resume)")
	if !c.useRAG {
		ui.ShowWarning("Knowledge base retrieval is off (--no-rag)")
	}

	for {
		question, err := ui.PromptQuestion()
		if errors.Is(err, terminal.InterruptErr) {
			return nil
		}
		if err != nil {
			return err
		}
		if isExit(question) {
			return nil
		}

		answer, err := c.ask(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			ui.ShowError(describeError(err).Error())
			continue
		}

		if quit := c.afterAnswer(answer); quit {
			return nil
		}
	}
}

// afterAnswer shows the answer and handles follow-up actions until the user moves on
func (c *chatSession) afterAnswer(answer *assistant.Answer) bool {
	action, err := ui.ConfirmAnswer(answer.Text, len(answer.Sources) > 0)
	for {
		if err != nil {
			return true
		}

		switch action {
		case ui.ActionAskAnother:
			return false
		case ui.ActionCopy:
			if err := clipboard.WriteAll(answer.Text); err != nil {
				ui.ShowError(fmt.Sprintf("Failed to copy to clipboard: %v", err))
			} else {
				ui.ShowSuccess("Answer copied to clipboard!")
			}
		case ui.ActionSources:
			fmt.Println()
			fmt.Print(assistant.FormatSources(answer.Sources))
		case ui.ActionNewConversation:
			c.save()
			c.session = c.hist.NewSession(c.useRAG)
			ui.ShowInfo("Started a new conversation")
			return false
		default:
			return true
		}

		action, err = ui.NextAction(len(answer.Sources) > 0)
	}
}

// ask answers with the recent conversation and records both turns
func (c *chatSession) ask(ctx context.Context, question string) (*assistant.Answer, error) {
	answer, err := c.bot.Ask(ctx, question, assistant.Options{
		UseRAG:  c.useRAG,
		History: toMessages(c.session.Recent(generation.MaxHistoryMessages)),
	})
	if errors.Is(err, retrieval.ErrEmbeddingService) && c.useRAG {
		c.logger.Warn("retrieval failed, answering without context", zap.Error(err))
		answer, err = c.bot.Ask(ctx, question, assistant.Options{
			History: toMessages(c.session.Recent(generation.MaxHistoryMessages)),
		})
	}
	if err != nil {
		return nil, err
	}

	c.session.Add(string(generation.RoleUser), question)
	c.session.Add(string(generation.RoleAssistant), answer.Text)
	return answer, nil
}

func (c *chatSession) save() {
	if len(c.session.Messages) == 0 {
		c.hist.Sessions = removeSession(c.hist.Sessions, c.session.ID)
	}
	if err := c.hist.Save(); err != nil {
		c.logger.Warn("failed to save chat history", zap.Error(err))
	}
}

// openSession continues the saved session with id, or starts a new one when id is empty
func openSession(hist *history.History, id string, useRAG bool) (*history.Session, error) {
	if id == "" {
		return hist.NewSession(useRAG), nil
	}

	session := hist.Find(id)
	if session == nil {
		return nil, fmt.Errorf("no saved conversation with id %s", id)
	}
	ui.ShowInfo(fmt.Sprintf("Resuming conversation from %s (%d messages)",
		session.StartedAt.Format("2006-01-02 15:04"), len(session.Messages)))
	return session, nil
}

func removeSession(sessions []*history.Session, id string) []*history.Session {
	kept := sessions[:0]
	for _, s := range sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	return kept
}

func toMessages(msgs []history.Message) []generation.Message {
	out := make([]generation.Message, len(msgs))
	for i, m := range msgs {
		out[i] = generation.Message{Role: generation.Role(m.Role), Content: m.Content}
	}
	return out
}

func isExit(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", "bye":
		return true
	}
	return false
}

// serveMetrics exposes /metrics until the returned stop func is called
func serveMetrics(a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
