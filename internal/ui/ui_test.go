package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer

	prevOutput, prevNoColor := color.Output, color.NoColor
	color.Output = &buf
	color.NoColor = true
	t.Cleanup(func() {
		color.Output = prevOutput
		color.NoColor = prevNoColor
	})

	return &buf
}

func TestMessages(t *testing.T) {
	buf := captureOutput(t)

	ShowSuccess("Indexed 42 documents")
	ShowError("knowledge base not found")
	ShowWarning("answering without context")
	ShowInfo("Type 'exit' to quit")

	assert.Equal(t,
		"✓ Indexed 42 documents\n✗ knowledge base not found\n! answering without context\nType 'exit' to quit\n",
		buf.String(),
	)
}

func TestShowAnswerAndSection(t *testing.T) {
	buf := captureOutput(t)

	ShowAnswer("Classes start on August 25.")
	ShowSection("Retrieved Context:", "1. (Relevance: 0.99)")

	assert.Equal(t,
		"\nEDU Bot:\nClasses start on August 25.\n\n\nRetrieved Context:\n1. (Relevance: 0.99)\n",
		buf.String(),
	)
}

func TestAnswerOptions(t *testing.T) {
	assert.Equal(t, []string{choiceAskAnother, choiceCopy, choiceNew, choiceQuit}, answerOptions(false))
	assert.Equal(t, []string{choiceAskAnother, choiceCopy, choiceSources, choiceNew, choiceQuit}, answerOptions(true))
}

func TestParseAction(t *testing.T) {
	tests := map[string]Action{
		choiceAskAnother: ActionAskAnother,
		choiceCopy:       ActionCopy,
		choiceSources:    ActionSources,
		choiceNew:        ActionNewConversation,
		choiceQuit:       ActionQuit,
		"":               ActionQuit,
	}
	for choice, want := range tests {
		assert.Equal(t, want, parseAction(choice), choice)
	}
}
