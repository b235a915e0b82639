// Package session stores conversation history for multi-turn agent runs.
package session

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Item is one message in a conversation
type Item struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an ordered conversation history.
type Session interface {
	ID() string
	// Items returns the latest limit items in chronological order; limit <= 0 returns all.
	Items(ctx context.Context, limit int) ([]Item, error)
	AddItems(ctx context.Context, items ...Item) error
	// PopItem removes and returns the most recent item, nil when empty.
	PopItem(ctx context.Context) (*Item, error)
	Clear(ctx context.Context) error
}

// MemorySession is a Session held in process memory
type MemorySession struct {
	id    string
	mu    sync.Mutex
	items []Item
}

// NewMemorySession creates an empty in-memory session
func NewMemorySession(id string) *MemorySession {
	return &MemorySession{id: id}
}

func (s *MemorySession) ID() string { return s.id }

func (s *MemorySession) Items(_ context.Context, limit int) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.items, limit), nil
}

func (s *MemorySession) AddItems(_ context.Context, items ...Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, item := range items {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		s.items = append(s.items, item)
	}
	return nil
}

func (s *MemorySession) PopItem(_ context.Context) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil, nil
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return &last, nil
}

func (s *MemorySession) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

func tail(items []Item, limit int) []Item {
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return slices.Clone(items)
}
