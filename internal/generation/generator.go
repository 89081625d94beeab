package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrGenerationService wraps any failure of the text generation service
var ErrGenerationService = errors.New("generation service error")

// SystemPrompt frames every conversation with the campus assistant persona
const SystemPrompt = `You are EDU Bot, a helpful AI assistant for UMass Dartmouth students.
Answer questions clearly and concisely based on the provided context.
If the context doesn't contain relevant information, say so politely and provide general guidance.`

// MaxHistoryMessages is how much prior conversation is sent with a question (ten exchanges)
const MaxHistoryMessages = 20

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a question with its retrieved context and the conversation so far
type Request struct {
	Question string
	Context  []string
	History  []Message
}

// Generator produces answers from a hosted language model
type Generator interface {
	// Generate answers prompt using the given passages, without conversation history
	Generate(ctx context.Context, prompt string, passages []string) (string, error)

	// Chat answers a request that may carry conversation history
	Chat(ctx context.Context, req Request) (string, error)
}

// UserMessage renders the question with its context the way the model expects it
func UserMessage(question string, context []string) string {
	joined := strings.Join(context, "\n\n")
	if strings.TrimSpace(joined) == "" {
		return question
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", joined, question)
}

// BuildMessages assembles the system prompt, the recent history and the user turn
func BuildMessages(req Request) []Message {
	history := req.History
	if len(history) > MaxHistoryMessages {
		history = history[len(history)-MaxHistoryMessages:]
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: SystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: UserMessage(req.Question, req.Context)})
	return messages
}
