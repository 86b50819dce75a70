package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certis/internal/authn"
	"certis/pkg/sentinel"
	"certis/pkg/testutil"
)

func pending(identity, nonce string, ttl time.Duration) *authn.Challenge {
	now := time.Now()
	return &authn.Challenge{
		Nonce:     nonce,
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestCreateAndFind(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, pending("did:certis:alice", "n1", time.Minute)))

	ch, err := store.Find(ctx, "did:certis:alice", "n1")
	require.NoError(t, err)
	assert.Equal(t, "n1", ch.Nonce)

	_, err = store.Find(ctx, "did:certis:alice", "other")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// Same nonce for a different identity is a different key.
	_, err = store.Find(ctx, "did:certis:bob", "n1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCreateDuplicateNonce(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, pending("did:certis:alice", "n1", time.Minute)))
	err := store.Create(ctx, pending("did:certis:alice", "n1", time.Minute))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestConsumeIsSingleUse(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Create(ctx, pending("did:certis:alice", "n1", time.Minute)))

	ch, err := store.Consume(ctx, "did:certis:alice", "n1", now)
	require.NoError(t, err)
	assert.Equal(t, "n1", ch.Nonce)

	_, err = store.Consume(ctx, "did:certis:alice", "n1", now)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "second consume must fail")
}

func TestConsumeExpiredRemoves(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, pending("did:certis:alice", "n1", -time.Second)))

	_, err := store.Consume(ctx, "did:certis:alice", "n1", time.Now())
	assert.ErrorIs(t, err, sentinel.ErrExpired)

	// Expired consume is terminal: the challenge is gone.
	_, err = store.Find(ctx, "did:certis:alice", "n1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestConsumeConcurrentExactlyOneWinner(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Create(ctx, pending("did:certis:alice", "n1", time.Minute)))

	res := testutil.RunConcurrent(50, func(int) error {
		_, err := store.Consume(ctx, "did:certis:alice", "n1", now)
		return err
	})

	assert.Equal(t, int32(1), res.Successes, "exactly one consumer may win")
	assert.Equal(t, int32(49), res.NotFounds)
}

func TestDiscard(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, pending("did:certis:alice", "n1", time.Minute)))
	require.NoError(t, store.Discard(ctx, "did:certis:alice", "n1"))
	require.NoError(t, store.Discard(ctx, "did:certis:alice", "n1"), "discard is idempotent")

	_, err := store.Find(ctx, "did:certis:alice", "n1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDeleteExpired(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, pending("did:certis:alice", "old", -time.Minute)))
	require.NoError(t, store.Create(ctx, pending("did:certis:alice", "fresh", time.Minute)))

	deleted, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.Find(ctx, "did:certis:alice", "fresh")
	assert.NoError(t, err)
}
