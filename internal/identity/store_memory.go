package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"certis/internal/roles"
	"certis/pkg/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
//
// In-memory stores keep the initial implementation lightweight and testable.
// They intentionally favor clarity over performance.

// InMemoryStore stores identities in memory for tests/dev.
type InMemoryStore struct {
	mu         sync.RWMutex
	identities map[string]*Identity
}

// NewInMemoryStore constructs an empty in-memory identity store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{identities: make(map[string]*Identity)}
}

// FindByDID returns the identity record for a DID.
func (s *InMemoryStore) FindByDID(_ context.Context, did string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.identities[did]; ok {
		return cloneIdentity(id), nil
	}
	return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
}

// FindOrCreate returns the existing identity for a DID or creates one with the
// given default roles. The second return reports whether a record was created.
// The find-then-create is a single locked operation so concurrent first logins
// yield exactly one record.
func (s *InMemoryStore) FindOrCreate(_ context.Context, did string, defaultRoles []roles.Role, now time.Time) (*Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.identities[did]; ok {
		return cloneIdentity(existing), false, nil
	}

	id := &Identity{
		DID:       did,
		Roles:     append([]roles.Role(nil), defaultRoles...),
		Active:    true,
		CreatedAt: now,
	}
	s.identities[did] = id
	return cloneIdentity(id), true, nil
}

// AssignRole grants a role to an identity. Granting an already-held role is a no-op.
func (s *InMemoryStore) AssignRole(_ context.Context, did string, role roles.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q: %w", role, sentinel.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.identities[did]
	if !ok {
		return fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
	}
	if id.HasRole(role) {
		return nil
	}
	id.Roles = append(id.Roles, role)
	return nil
}

// Deactivate marks an identity inactive. Inactive identities cannot
// authenticate; the record itself is never deleted.
func (s *InMemoryStore) Deactivate(_ context.Context, did string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.identities[did]
	if !ok {
		return fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
	}
	id.Active = false
	return nil
}

func cloneIdentity(id *Identity) *Identity {
	out := *id
	out.Roles = append([]roles.Role(nil), id.Roles...)
	return &out
}
