package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certis/internal/authn"
	"certis/internal/roles"
	"certis/pkg/sentinel"
)

func newSession(id string, ttl time.Duration) *authn.Session {
	now := time.Now()
	return &authn.Session{
		ID:        id,
		Identity:  "did:certis:alice",
		Roles:     []roles.Role{roles.RoleCitizen},
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestCreateAndFind(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1", time.Hour)))

	got, err := store.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "did:certis:alice", got.Identity)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1", time.Hour)))
	require.NoError(t, store.Delete(ctx, "s1"))
	assert.ErrorIs(t, store.Delete(ctx, "s1"), sentinel.ErrNotFound)
}

func TestDeleteExpired(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("old", -time.Minute)))
	require.NoError(t, store.Create(ctx, newSession("fresh", time.Hour)))

	deleted, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.FindByID(ctx, "old")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = store.FindByID(ctx, "fresh")
	assert.NoError(t, err)
}
