package challenge

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
// - Return sentinel.ErrExpired when the challenge is past its window
// - Return nil for successful operations
//
// Consume is the single-use guarantee: the existence check and the removal are
// one locked operation per (identity, nonce), so two concurrent verifications
// of the same nonce yield exactly one success.

type key struct {
	identity string
	nonce    string
}

// InMemoryStore holds pending challenges in memory for tests/dev.
type InMemoryStore struct {
	mu         sync.RWMutex
	challenges map[key]*authn.Challenge
}

// NewInMemoryStore constructs an empty in-memory challenge store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{challenges: make(map[key]*authn.Challenge)}
}

// Create stores a pending challenge keyed by (identity, nonce).
func (s *InMemoryStore) Create(_ context.Context, ch *authn.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{identity: ch.Identity, nonce: ch.Nonce}
	if _, ok := s.challenges[k]; ok {
		return fmt.Errorf("challenge nonce already pending: %w", sentinel.ErrConflict)
	}
	s.challenges[k] = ch
	return nil
}

// Find returns the pending challenge without consuming it.
func (s *InMemoryStore) Find(_ context.Context, identity, nonce string) (*authn.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.challenges[key{identity: identity, nonce: nonce}]
	if !ok {
		return nil, fmt.Errorf("challenge not found: %w", sentinel.ErrNotFound)
	}
	out := *ch
	return &out, nil
}

// Consume atomically removes the pending challenge. An expired challenge is
// removed and reported as sentinel.ErrExpired; a missing one (including one
// already consumed by a concurrent call) is sentinel.ErrNotFound.
func (s *InMemoryStore) Consume(_ context.Context, identity, nonce string, now time.Time) (*authn.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{identity: identity, nonce: nonce}
	ch, ok := s.challenges[k]
	if !ok {
		return nil, fmt.Errorf("challenge not found: %w", sentinel.ErrNotFound)
	}
	delete(s.challenges, k)

	if ch.Expired(now) {
		return nil, fmt.Errorf("challenge expired: %w", sentinel.ErrExpired)
	}
	out := *ch
	return &out, nil
}

// Discard removes a pending challenge without treating absence as an error.
// Used when expiry is detected before consumption.
func (s *InMemoryStore) Discard(_ context.Context, identity, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, key{identity: identity, nonce: nonce})
	return nil
}

// DeleteExpired removes all challenges past their window as of the given time.
// The time parameter is injected for testability (no hidden time.Now() calls).
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for k, ch := range s.challenges {
		if ch.Expired(now) {
			delete(s.challenges, k)
			deleted++
		}
	}
	return deleted, nil
}
