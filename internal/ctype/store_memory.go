package ctype

import (
	"context"
	"fmt"
	"sync"

	"certis/pkg/sentinel"
)

// InMemoryStore stores credential types in memory, indexed both by ID and by
// content hash. CreateIfAbsent is the content-addressing primitive: the
// check-then-insert happens under a single lock so concurrent registrations of
// the same schema converge on one record.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*CredentialType
	byHash map[string]*CredentialType
}

// NewInMemoryStore constructs an empty in-memory credential type store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*CredentialType),
		byHash: make(map[string]*CredentialType),
	}
}

// CreateIfAbsent inserts the credential type unless one with the same content
// hash already exists. It returns the stored record and whether an insert
// happened.
func (s *InMemoryStore) CreateIfAbsent(_ context.Context, ct *CredentialType) (*CredentialType, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byHash[ct.ContentHash]; ok {
		return cloneCredentialType(existing), false, nil
	}
	if _, ok := s.byID[ct.ID]; ok {
		return nil, false, fmt.Errorf("credential type id collision: %w", sentinel.ErrConflict)
	}

	stored := cloneCredentialType(ct)
	s.byID[stored.ID] = stored
	s.byHash[stored.ContentHash] = stored
	return cloneCredentialType(stored), true, nil
}

// FindByID returns the credential type with the given ID.
func (s *InMemoryStore) FindByID(_ context.Context, id string) (*CredentialType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ct, ok := s.byID[id]; ok {
		return cloneCredentialType(ct), nil
	}
	return nil, fmt.Errorf("credential type not found: %w", sentinel.ErrNotFound)
}

// FindByContentHash returns the credential type with the given content hash.
func (s *InMemoryStore) FindByContentHash(_ context.Context, hash string) (*CredentialType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ct, ok := s.byHash[hash]; ok {
		return cloneCredentialType(ct), nil
	}
	return nil, fmt.Errorf("credential type not found: %w", sentinel.ErrNotFound)
}

func cloneCredentialType(ct *CredentialType) *CredentialType {
	out := *ct
	out.Schema = make(Schema, len(ct.Schema))
	for name, fieldType := range ct.Schema {
		out.Schema[name] = fieldType
	}
	return &out
}
