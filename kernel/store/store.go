// Package store persists the chat session index and per-session message
// logs through a pluggable key-value medium. Medium failures never cross
// the store boundary: reads degrade to empty values, writes are skipped,
// and the failure is reported on the diagnostic logger only.
package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rayan4-dot/kudoai/kernel/chat"
)

const (
	// Keys are namespaced to the application; values are plain JSON text.
	indexKey       = "kudoai_chats"
	messagesPrefix = "kudoai_messages_"
)

// Medium is the durable key-value surface the store writes through.
// Implementations must treat a missing key as (value="", ok=false, err=nil).
type Medium interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Config configures Store.
type Config struct {
	Medium Medium
	Logger zerolog.Logger
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Store owns the durable session index and message logs.
type Store struct {
	medium Medium
	log    zerolog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func New(cfg Config) (*Store, error) {
	if cfg.Medium == nil {
		return nil, fmt.Errorf("store: medium is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		medium: cfg.Medium,
		log:    cfg.Logger.With().Str("component", "store").Logger(),
		now:    now,
	}, nil
}

// SaveSession overwrites the index entry for id and replaces its message
// log with messages. An empty title keeps the existing title when the
// entry already has one, otherwise the title is derived from the first
// message. UpdatedAt and MessageCount always reflect this save.
func (s *Store) SaveSession(id, title string, messages []chat.Message) {
	id = strings.TrimSpace(id)
	if id == "" {
		s.diag("save_session", id, fmt.Errorf("store: session id is empty"))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.readIndex()
	entry := chat.Session{
		ID:           id,
		UpdatedAt:    s.now().UnixMilli(),
		MessageCount: len(messages),
	}
	switch {
	case strings.TrimSpace(title) != "":
		entry.Title = strings.TrimSpace(title)
	case index[id].Title != "":
		entry.Title = index[id].Title
	case len(messages) > 0:
		entry.Title = chat.DeriveTitle(messages[0].Content)
	}
	index[id] = entry

	if !s.writeJSON("save_session", id, indexKey, index) {
		return
	}
	s.writeJSON("save_session", id, messagesKey(id), messages)
}

// ListSessions returns the full index. A missing or unparseable index
// degrades to an empty map.
func (s *Store) ListSessions() map[string]chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

// LoadMessages returns the ordered log for id, or an empty slice when the
// log is absent or unparseable.
func (s *Store) LoadMessages(id string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readMessages(id)
}

// DeleteSession removes id from the index and drops its message log.
// Deleting an unknown id is a no-op.
func (s *Store) DeleteSession(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.readIndex()
	delete(index, id)
	if !s.writeJSON("delete_session", id, indexKey, index) {
		return
	}
	if err := s.medium.RemoveItem(messagesKey(id)); err != nil {
		s.diag("delete_session", id, err)
	}
}

func (s *Store) readIndex() map[string]chat.Session {
	index := map[string]chat.Session{}
	raw, ok, err := s.medium.GetItem(indexKey)
	if err != nil {
		s.diag("list_sessions", "", err)
		return index
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return index
	}
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		s.diag("list_sessions", "", fmt.Errorf("store: parse index: %w", err))
		return map[string]chat.Session{}
	}
	return index
}

func (s *Store) readMessages(id string) []chat.Message {
	raw, ok, err := s.medium.GetItem(messagesKey(id))
	if err != nil {
		s.diag("load_messages", id, err)
		return []chat.Message{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []chat.Message{}
	}
	messages := []chat.Message{}
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		s.diag("load_messages", id, fmt.Errorf("store: parse messages: %w", err))
		return []chat.Message{}
	}
	return messages
}

func (s *Store) writeJSON(op, id, key string, value any) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		s.diag(op, id, fmt.Errorf("store: marshal %q: %w", key, err))
		return false
	}
	if err := s.medium.SetItem(key, string(raw)); err != nil {
		s.diag(op, id, err)
		return false
	}
	return true
}

func (s *Store) diag(op, id string, err error) {
	s.log.Error().
		Str("op", op).
		Str("session_id", id).
		Err(err).
		Msg("storage operation degraded")
}

func messagesKey(id string) string {
	return messagesPrefix + id
}
