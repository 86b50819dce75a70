package attestation

import (
	"context"
	"fmt"
	"sync"
	"time"

	platformsync "certis/pkg/platform/sync"
	"certis/pkg/sentinel"
)

// InMemoryStore stores attestations in memory. The uniqueness rule is at most
// one non-revoked attestation per claim; CreateIfNoneActive enforces it by
// serializing the check-then-insert per claim ID on a sharded mutex, so
// concurrent attempts against one claim do not block attempts against others.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Attestation
	active map[string]string // claimID -> non-revoked attestation ID

	claimLocks *platformsync.ShardedMutex
}

// NewInMemoryStore constructs an empty in-memory attestation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:       make(map[string]*Attestation),
		active:     make(map[string]string),
		claimLocks: platformsync.NewShardedMutex(),
	}
}

// CreateIfNoneActive inserts the attestation unless the claim already has a
// non-revoked one, in which case it returns sentinel.ErrAlreadyAttested.
// Exactly one of N concurrent calls for the same claim succeeds.
func (s *InMemoryStore) CreateIfNoneActive(_ context.Context, a *Attestation) error {
	s.claimLocks.Lock(a.ClaimID)
	defer s.claimLocks.Unlock(a.ClaimID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.active[a.ClaimID]; ok {
		return fmt.Errorf("claim %s already attested by %s: %w", a.ClaimID, existing, sentinel.ErrAlreadyAttested)
	}

	stored := cloneAttestation(a)
	s.byID[stored.ID] = stored
	s.active[stored.ClaimID] = stored.ID
	return nil
}

// FindByID returns the attestation with the given ID.
func (s *InMemoryStore) FindByID(_ context.Context, id string) (*Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.byID[id]; ok {
		return cloneAttestation(a), nil
	}
	return nil, fmt.Errorf("attestation not found: %w", sentinel.ErrNotFound)
}

// FindActiveByClaim returns the claim's non-revoked attestation, if any.
func (s *InMemoryStore) FindActiveByClaim(_ context.Context, claimID string) (*Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.active[claimID]; ok {
		return cloneAttestation(s.byID[id]), nil
	}
	return nil, fmt.Errorf("no active attestation for claim: %w", sentinel.ErrNotFound)
}

// Revoke marks the attestation revoked. Revocation is monotonic: revoking an
// already-revoked attestation returns sentinel.ErrAlreadyRevoked.
func (s *InMemoryStore) Revoke(_ context.Context, id string, now time.Time) (*Attestation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("attestation not found: %w", sentinel.ErrNotFound)
	}
	if a.Revoked {
		return nil, fmt.Errorf("attestation %s: %w", id, sentinel.ErrAlreadyRevoked)
	}

	a.Revoked = true
	revokedAt := now
	a.RevokedAt = &revokedAt
	if s.active[a.ClaimID] == id {
		delete(s.active, a.ClaimID)
	}
	return cloneAttestation(a), nil
}

func cloneAttestation(a *Attestation) *Attestation {
	out := *a
	out.Signature = append([]byte(nil), a.Signature...)
	if a.RevokedAt != nil {
		revokedAt := *a.RevokedAt
		out.RevokedAt = &revokedAt
	}
	return &out
}
