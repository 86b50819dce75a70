package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"certis/internal/authn"
	challengestore "certis/internal/authn/store/challenge"
	sessionstore "certis/internal/authn/store/session"
	"certis/pkg/sentinel"
)

func TestRunOnceSweepsExpiredArtifacts(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	challenges := challengestore.NewInMemoryStore()
	sessions := sessionstore.NewInMemoryStore()

	expired := &authn.Challenge{
		Nonce:     "expired-nonce",
		Identity:  "did:certis:alice",
		IssuedAt:  now.Add(-10 * time.Minute),
		ExpiresAt: now.Add(-8 * time.Minute),
	}
	require.NoError(t, challenges.Create(ctx, expired))

	pending := &authn.Challenge{
		Nonce:     "pending-nonce",
		Identity:  "did:certis:alice",
		IssuedAt:  now,
		ExpiresAt: now.Add(2 * time.Minute),
	}
	require.NoError(t, challenges.Create(ctx, pending))

	expiredSession := &authn.Session{
		ID:        uuid.New().String(),
		Identity:  "did:certis:alice",
		IssuedAt:  now.Add(-48 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	require.NoError(t, sessions.Create(ctx, expiredSession))

	liveSession := &authn.Session{
		ID:        uuid.New().String(),
		Identity:  "did:certis:bob",
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, sessions.Create(ctx, liveSession))

	svc, err := New(challenges, sessions, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	res, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.DeletedChallenges)
	require.Equal(t, 1, res.DeletedSessions)

	_, err = challenges.Find(ctx, expired.Identity, expired.Nonce)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = challenges.Find(ctx, pending.Identity, pending.Nonce)
	require.NoError(t, err)

	_, err = sessions.FindByID(ctx, expiredSession.ID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = sessions.FindByID(ctx, liveSession.ID)
	require.NoError(t, err)
}

func TestNewRequiresStores(t *testing.T) {
	_, err := New(nil, sessionstore.NewInMemoryStore())
	require.Error(t, err)

	_, err = New(challengestore.NewInMemoryStore(), nil)
	require.Error(t, err)
}
