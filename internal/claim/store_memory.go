package claim

import (
	"context"
	"fmt"
	"sync"

	"certis/pkg/sentinel"
)

// InMemoryStore stores accepted claims in memory. Claims are immutable, so
// there is no update path.
type InMemoryStore struct {
	mu     sync.RWMutex
	claims map[string]*Claim
}

// NewInMemoryStore constructs an empty in-memory claim store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{claims: make(map[string]*Claim)}
}

// Create inserts an accepted claim.
func (s *InMemoryStore) Create(_ context.Context, c *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[c.ID]; ok {
		return fmt.Errorf("claim %s already exists: %w", c.ID, sentinel.ErrConflict)
	}
	s.claims[c.ID] = cloneClaim(c)
	return nil
}

// FindByID returns the claim with the given ID.
func (s *InMemoryStore) FindByID(_ context.Context, id string) (*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.claims[id]; ok {
		return cloneClaim(c), nil
	}
	return nil, fmt.Errorf("claim not found: %w", sentinel.ErrNotFound)
}

func cloneClaim(c *Claim) *Claim {
	out := *c
	out.Payload = make(map[string]any, len(c.Payload))
	for k, v := range c.Payload {
		out.Payload[k] = v
	}
	return &out
}
