package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"certis/internal/authn"
	"certis/pkg/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested entity does not exist
// - Return nil for successful operations
//
// Sessions are ephemeral: nothing here persists beyond the validity window,
// and DeleteExpired is the GC hook driven by the cleanup worker.

// InMemoryStore stores sessions in memory for tests/dev.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*authn.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*authn.Session)}
}

// Create stores a session by ID.
func (s *InMemoryStore) Create(_ context.Context, session *authn.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

// FindByID returns the session with the given ID.
func (s *InMemoryStore) FindByID(_ context.Context, sessionID string) (*authn.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		out := *session
		return &out, nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

// Delete removes a session, ending it before its natural expiry.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

// DeleteExpired removes all sessions that have expired as of the given time.
// The time parameter is injected for testability (no hidden time.Now() calls).
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}
