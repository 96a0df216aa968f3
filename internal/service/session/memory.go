package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hualaowei/chatbot/backend/internal/model/chat"
)

// MemoryStore is an in-process Store for tests and for running without a
// database file.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]chat.Message)}
}

// Append logs one message.
func (s *MemoryStore) Append(_ context.Context, msg chat.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.MessageType == "" {
		msg.MessageType = chat.TypeText
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

// ReadWindow returns the last max messages of a session, text only, oldest
// first.
func (s *MemoryStore) ReadWindow(_ context.Context, sessionID string, max int) ([]chat.Message, error) {
	if max <= 0 {
		max = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[sessionID]
	start := len(all) - max
	if start < 0 {
		start = 0
	}

	window := make([]chat.Message, 0, len(all)-start)
	for _, msg := range all[start:] {
		if msg.MessageType != chat.TypeText {
			continue
		}
		window = append(window, msg)
	}
	return window, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
