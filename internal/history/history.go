package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	HistoryFileName = "history.json"

	// MaxSessions bounds how many conversations are kept on disk
	MaxSessions = 50
)

// Message is a single turn in a conversation
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one conversation with the assistant
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	UseRAG    bool      `json:"use_rag"`
	Messages  []Message `json:"messages"`
}

// History manages saved conversations
type History struct {
	Sessions []*Session `json:"sessions"`

	path string
}

// GetHistoryPath returns the path to the history file
func GetHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".edubot", HistoryFileName), nil
}

// Load reads the history from the default location
func Load() (*History, error) {
	historyPath, err := GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(historyPath)
}

// LoadFile reads the history at path. A missing file is an empty history.
func LoadFile(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &History{Sessions: []*Session{}, path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var hist History
	if err := json.Unmarshal(data, &hist); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	hist.path = path

	return &hist, nil
}

// Save writes the history back to where it was loaded from, keeping the newest sessions
func (h *History) Save() error {
	if h.path == "" {
		historyPath, err := GetHistoryPath()
		if err != nil {
			return err
		}
		h.path = historyPath
	}

	if len(h.Sessions) > MaxSessions {
		h.Sessions = h.Sessions[len(h.Sessions)-MaxSessions:]
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(h.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	return nil
}

// NewSession starts and records a new conversation
func (h *History) NewSession(useRAG bool) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		UseRAG:    useRAG,
		Messages:  []Message{},
	}
	h.Sessions = append(h.Sessions, s)
	return s
}

// Find returns the session with id, or nil
func (h *History) Find(id string) *Session {
	for _, s := range h.Sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Add appends a message to the session
func (s *Session) Add(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// Recent returns the last n messages, oldest first
func (s *Session) Recent(n int) []Message {
	if n <= 0 || n >= len(s.Messages) {
		return append([]Message(nil), s.Messages...)
	}
	return append([]Message(nil), s.Messages[len(s.Messages)-n:]...)
}
