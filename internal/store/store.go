// Package store persists server-side conversation sessions.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/novera/support-assistant/internal/model"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// ChatSession is the server-side state of one conversation.
type ChatSession struct {
	ID          string           `json:"id"`
	TenantID    string           `json:"tenant_id"`
	Region      string           `json:"region"`
	Tier        string           `json:"tier"`
	EnvProducts model.ProductMap `json:"env_products,omitempty"`
	Turns       []model.Turn     `json:"turns"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// SessionStore loads and saves chat sessions.
type SessionStore interface {
	// Load returns the session with the given id, or ErrNotFound.
	Load(ctx context.Context, id string) (*ChatSession, error)

	// Save persists the session and refreshes its TTL where applicable.
	Save(ctx context.Context, session *ChatSession) error
}

// MemoryStore is an in-memory SessionStore for tests and deployments
// without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*ChatSession),
	}
}

// Load returns a copy of the stored session.
func (s *MemoryStore) Load(ctx context.Context, id string) (*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}

	clone := *session
	clone.Turns = append([]model.Turn(nil), session.Turns...)
	clone.EnvProducts = session.EnvProducts.Clone()
	return &clone, nil
}

// Save stores a copy of the session.
func (s *MemoryStore) Save(ctx context.Context, session *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *session
	clone.Turns = append([]model.Turn(nil), session.Turns...)
	clone.EnvProducts = session.EnvProducts.Clone()
	s.sessions[session.ID] = &clone
	return nil
}
