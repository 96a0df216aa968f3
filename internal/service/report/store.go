package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stateTTL    = 24 * time.Hour
	statePrefix = "report:"
)

// StateStore holds the in-progress form for each session with an active
// sub-dialogue. Absence of a form means no sub-dialogue is active.
type StateStore interface {
	Get(ctx context.Context, sessionID string) (*Form, error)
	Put(ctx context.Context, sessionID string, form *Form) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStateStore keeps sub-dialogue state in process memory.
type MemoryStateStore struct {
	mu    sync.RWMutex
	forms map[string]*Form
}

// NewMemoryStateStore creates an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{forms: make(map[string]*Form)}
}

// Get returns the session's form, or nil when no sub-dialogue is active.
func (s *MemoryStateStore) Get(_ context.Context, sessionID string) (*Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	form, ok := s.forms[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *form
	copied.Attachments = append([]string(nil), form.Attachments...)
	return &copied, nil
}

// Put stores the session's form.
func (s *MemoryStateStore) Put(_ context.Context, sessionID string, form *Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *form
	copied.Attachments = append([]string(nil), form.Attachments...)
	s.forms[sessionID] = &copied
	return nil
}

// Delete ends the session's sub-dialogue.
func (s *MemoryStateStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forms, sessionID)
	return nil
}

// RedisStateStore keeps sub-dialogue state in redis so it survives restarts
// and is shared across replicas. Entries expire after 24 hours.
type RedisStateStore struct {
	rdb *redis.Client
}

// NewRedisStateStore wraps an existing redis client.
func NewRedisStateStore(rdb *redis.Client) *RedisStateStore {
	return &RedisStateStore{rdb: rdb}
}

func stateKey(sessionID string) string {
	return statePrefix + sessionID
}

// Get returns the session's form, or nil when no sub-dialogue is active.
func (s *RedisStateStore) Get(ctx context.Context, sessionID string) (*Form, error) {
	data, err := s.rdb.Get(ctx, stateKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report state: %w", err)
	}

	var form Form
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report state: %w", err)
	}
	return &form, nil
}

// Put stores the session's form and refreshes its TTL.
func (s *RedisStateStore) Put(ctx context.Context, sessionID string, form *Form) error {
	data, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("failed to marshal report state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(sessionID), data, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save report state: %w", err)
	}
	return nil
}

// Delete ends the session's sub-dialogue.
func (s *RedisStateStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, stateKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete report state: %w", err)
	}
	return nil
}
