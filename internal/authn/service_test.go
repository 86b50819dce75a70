package authn_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"certis/internal/authn"
	challengestore "certis/internal/authn/store/challenge"
	sessionstore "certis/internal/authn/store/session"
	"certis/internal/identity"
	"certis/internal/keyring"
	"certis/internal/keyring/mocks"
	"certis/internal/roles"
	"certis/internal/token"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/sentinel"
	"certis/pkg/testutil"
)

type fixture struct {
	svc        *authn.Service
	signer     *keyring.LocalSigner
	directory  *keyring.LocalDirectory
	identities *identity.InMemoryStore
	sessions   *sessionstore.InMemoryStore
	clock      *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T, opts ...authn.Option) *fixture {
	t.Helper()

	signer, err := keyring.GenerateSigner()
	require.NoError(t, err)

	directory := keyring.NewLocalDirectory()
	pub, err := signer.PublicKey(context.Background())
	require.NoError(t, err)
	directory.Register(signer.DID(), pub)

	clock := &fakeClock{now: time.Now()}
	identities := identity.NewInMemoryStore()
	sessions := sessionstore.NewInMemoryStore()

	base := []authn.Option{
		authn.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		authn.WithClock(clock.Now),
	}
	svc := authn.NewService(
		challengestore.NewInMemoryStore(),
		sessions,
		identities,
		directory,
		token.NewService("test-key", "certis"),
		append(base, opts...)...,
	)

	return &fixture{
		svc:        svc,
		signer:     signer,
		directory:  directory,
		identities: identities,
		sessions:   sessions,
		clock:      clock,
	}
}

func (f *fixture) signNonce(t *testing.T, nonce string) []byte {
	t.Helper()
	sig, err := f.signer.Sign(context.Background(), []byte(nonce))
	require.NoError(t, err)
	return sig
}

func TestIssueChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)
	assert.NotEmpty(t, ch.Nonce)
	assert.Equal(t, f.signer.DID(), ch.Identity)
	assert.Equal(t, authn.DefaultChallengeTTL, ch.ExpiresAt.Sub(ch.IssuedAt))

	other, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)
	assert.NotEqual(t, ch.Nonce, other.Nonce, "nonces must be unique")
}

func TestIssueChallengeValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.IssueChallenge(context.Background(), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = f.svc.IssueChallenge(context.Background(), "not-a-did")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestVerifyResponseSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)

	session, bearer, err := f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEmpty(t, bearer)
	assert.Equal(t, f.signer.DID(), session.Identity)
	assert.Equal(t, []roles.Role{roles.RoleCitizen}, session.Roles, "first login gets the default role")

	// First authentication creates the identity record.
	id, err := f.identities.FindByDID(ctx, f.signer.DID())
	require.NoError(t, err)
	assert.True(t, id.Active)
}

func TestVerifyResponseReplayFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)
	sig := f.signNonce(t, ch.Nonce)

	_, _, err = f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, sig, "")
	require.NoError(t, err)

	_, _, err = f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, sig, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "a consumed nonce must be indistinguishable from an unknown one")
}

func TestVerifyResponseUnknownNonce(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.VerifyResponse(context.Background(), f.signer.DID(), "never-issued", []byte("sig"), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestVerifyResponseExpiredChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)

	f.clock.Advance(authn.DefaultChallengeTTL + time.Second)

	_, _, err = f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	assert.ErrorIs(t, err, sentinel.ErrExpired)

	// Expiry is terminal: even a later valid attempt sees not-found.
	_, _, err = f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

// A wrong signature must not consume the challenge: the same nonce signed with
// the correct key afterwards still succeeds.
func TestVerifyResponseWrongKeyLeavesChallengePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)

	wrongSigner, err := keyring.GenerateSigner()
	require.NoError(t, err)
	wrongSig, err := wrongSigner.Sign(ctx, []byte(ch.Nonce))
	require.NoError(t, err)

	_, _, err = f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, wrongSig, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.ErrorIs(t, err, sentinel.ErrSignatureInvalid)

	// Retry with the correct key succeeds.
	session, _, err := f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	require.NoError(t, err)
	assert.NotNil(t, session)
}

func TestVerifyResponseConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)
	sig := f.signNonce(t, ch.Nonce)

	const goroutines = 20
	res := testutil.RunConcurrent(goroutines, func(int) error {
		_, _, err := f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, sig, "")
		return err
	})

	assert.Equal(t, int32(1), res.Successes, "a nonce is accepted at most once")
	assert.Equal(t, int32(goroutines-1), res.NotFounds, "losers see the consumed nonce as unknown")
}

func TestVerifyResponseInactiveIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Authenticate once to create the record, then deactivate it.
	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)
	_, _, err = f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	require.NoError(t, err)
	require.NoError(t, f.identities.Deactivate(ctx, f.signer.DID()))

	ch, err = f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)
	_, _, err = f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestVerifyResponseDirectoryTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t)
	dir := mocks.NewMockDirectory(ctrl)
	dir.EXPECT().Resolve(gomock.Any(), f.signer.DID()).Return(nil, sentinel.ErrTimeout)
	authn.SetDirectory(f.svc, dir)

	ctx := context.Background()
	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)

	_, _, err = f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.True(t, dErrors.Retryable(err), "upstream timeout must be retryable for the caller")
}

func TestVerifyResponseDirectoryUnknownIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t)
	dir := mocks.NewMockDirectory(ctrl)
	dir.EXPECT().Resolve(gomock.Any(), f.signer.DID()).Return(nil, sentinel.ErrNotFound)
	authn.SetDirectory(f.svc, dir)

	ctx := context.Background()
	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)

	_, _, err = f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)
	session, bearer, err := f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	require.NoError(t, err)

	principal, err := f.svc.ValidateSession(ctx, bearer)
	require.NoError(t, err)
	assert.Equal(t, f.signer.DID(), principal.DID)
	assert.Equal(t, session.ID, principal.SessionID)
	assert.Equal(t, session.Roles, principal.Roles)
}

func TestValidateSessionExpired(t *testing.T) {
	f := newFixture(t, authn.WithSessionTTL(time.Minute))
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)
	_, bearer, err := f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)

	_, err = f.svc.ValidateSession(ctx, bearer)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateSessionGoneFromStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)
	session, bearer, err := f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), "")
	require.NoError(t, err)

	require.NoError(t, f.sessions.Delete(ctx, session.ID))

	_, err = f.svc.ValidateSession(ctx, bearer)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateSessionGarbageToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ValidateSession(context.Background(), "not-a-token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestSessionCarriesDeviceDisplayName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.signer.DID())
	require.NoError(t, err)

	ua := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	session, _, err := f.svc.VerifyResponse(ctx, f.signer.DID(), ch.Nonce, f.signNonce(t, ch.Nonce), ua)
	require.NoError(t, err)
	assert.Contains(t, session.Device, "Chrome")
}
