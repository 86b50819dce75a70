// Package authn implements the challenge-response authenticator: it issues
// one-time challenges, verifies signed responses against the identity's
// current public key, and establishes role-carrying sessions.
package authn

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"certis/internal/authn/device"
	"certis/internal/identity"
	"certis/internal/keyring"
	"certis/internal/platform/metrics"
	"certis/internal/platform/tracer"
	"certis/internal/roles"
	"certis/internal/token"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/sentinel"
)

const (
	defaultChallengeTTL = 2 * time.Minute
	defaultSessionTTL   = 24 * time.Hour
	nonceBytes          = 32
)

// ChallengeStore defines the persistence interface for pending challenges.
// Error Contract: Find returns sentinel.ErrNotFound when no challenge matches;
// Consume is atomic per (identity, nonce) and returns sentinel.ErrNotFound or
// sentinel.ErrExpired.
type ChallengeStore interface {
	Create(ctx context.Context, ch *Challenge) error
	Find(ctx context.Context, identity, nonce string) (*Challenge, error)
	Consume(ctx context.Context, identity, nonce string, now time.Time) (*Challenge, error)
	Discard(ctx context.Context, identity, nonce string) error
}

// SessionStore defines the persistence interface for sessions.
// Error Contract: FindByID returns sentinel.ErrNotFound when the session is gone.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
}

// IdentityStore resolves identities and creates them on first authentication.
type IdentityStore interface {
	FindOrCreate(ctx context.Context, did string, defaultRoles []roles.Role, now time.Time) (*identity.Identity, bool, error)
}

// TokenMinter mints and parses bearer session tokens.
type TokenMinter interface {
	Generate(did, sessionID string, sessionRoles []roles.Role, nonce string, issuedAt, expiresAt time.Time) (string, error)
	Parse(tokenString string) (*token.SessionClaims, error)
}

// Service is the challenge-response authenticator.
type Service struct {
	challenges ChallengeStore
	sessions   SessionStore
	identities IdentityStore
	directory  keyring.Directory
	tokens     TokenMinter

	challengeTTL time.Duration
	sessionTTL   time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	now     func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer attaches a tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithChallengeTTL configures the challenge validity window.
func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.challengeTTL = ttl
		}
	}
}

// WithSessionTTL configures the session validity window.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the authenticator.
func NewService(
	challenges ChallengeStore,
	sessions SessionStore,
	identities IdentityStore,
	directory keyring.Directory,
	tokens TokenMinter,
	opts ...Option,
) *Service {
	svc := &Service{
		challenges:   challenges,
		sessions:     sessions,
		identities:   identities,
		directory:    directory,
		tokens:       tokens,
		challengeTTL: defaultChallengeTTL,
		sessionTTL:   defaultSessionTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.tracer == nil {
		svc.tracer = tracer.NewNoop()
	}
	return svc
}

// IssueChallenge generates a cryptographically random nonce bound to the
// identity and stores it as pending for the configured window.
func (s *Service) IssueChallenge(ctx context.Context, identity string) (*Challenge, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanChallengeIssue,
		tracer.String(tracer.AttrIdentity, tracer.HashDID(identity)),
	)
	var issueErr error
	defer func() { span.End(issueErr) }()

	if err := validateDID(identity); err != nil {
		issueErr = err
		return nil, err
	}

	nonce, err := newNonce()
	if err != nil {
		issueErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
		return nil, issueErr
	}

	now := s.now()
	ch := &Challenge{
		Nonce:     nonce,
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}
	if err := s.challenges.Create(ctx, ch); err != nil {
		issueErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to store challenge")
		return nil, issueErr
	}

	if s.metrics != nil {
		s.metrics.ChallengesIssued.Inc()
	}
	s.logger.InfoContext(ctx, "challenge issued",
		"identity_hash", tracer.HashDID(identity),
		"expires_at", ch.ExpiresAt,
	)
	return ch, nil
}

// VerifyResponse checks a signed challenge response and, on success,
// establishes a session. The signed payload is the raw nonce bytes.
//
// Contract:
//   - no pending challenge for (identity, nonce): challenge not found
//   - challenge past expiry: challenge expired, and the challenge is discarded
//   - signature does not verify against the identity's current directory key:
//     signature invalid, and the challenge REMAINS pending until its own
//     expiry so the caller may retry with the correct key
//   - on success the challenge is consumed atomically; a replay of the same
//     nonce fails with challenge not found, including under concurrent calls
func (s *Service) VerifyResponse(ctx context.Context, identity, nonce string, signature []byte, userAgent string) (*Session, string, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanChallengeVerify,
		tracer.String(tracer.AttrIdentity, tracer.HashDID(identity)),
	)
	var verifyErr error
	defer func() { span.End(verifyErr) }()

	ch, err := s.challenges.Find(ctx, identity, nonce)
	if err != nil {
		verifyErr = s.authFailure(ctx, err, "challenge_not_found", dErrors.CodeUnauthorized, "challenge not found")
		return nil, "", verifyErr
	}

	now := s.now()
	if ch.Expired(now) {
		// Expiry is terminal: discard so the nonce cannot linger.
		_ = s.challenges.Discard(ctx, identity, nonce)
		verifyErr = s.authFailure(ctx, sentinel.ErrExpired, "challenge_expired", dErrors.CodeUnauthorized, "challenge expired")
		return nil, "", verifyErr
	}

	keyInfo, err := s.directory.Resolve(ctx, identity)
	if err != nil {
		verifyErr = s.translateUpstream(ctx, err, "directory")
		return nil, "", verifyErr
	}
	span.SetAttributes(tracer.Int64(tracer.AttrKeyEpoch, int64(keyInfo.KeyEpoch)))

	if !keyring.Verify(keyInfo.PublicKey, []byte(nonce), signature) {
		// Wrong signature does not consume the challenge; a retry with the
		// correct key is allowed until the challenge expires on its own.
		verifyErr = s.authFailure(ctx, sentinel.ErrSignatureInvalid, "signature_invalid", dErrors.CodeUnauthorized, "signature invalid")
		return nil, "", verifyErr
	}

	// Atomic consume is the replay guard: with two concurrent valid responses
	// exactly one reaches this point first and wins.
	if _, err := s.challenges.Consume(ctx, identity, nonce, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrExpired):
			verifyErr = s.authFailure(ctx, err, "challenge_expired", dErrors.CodeUnauthorized, "challenge expired")
		default:
			verifyErr = s.authFailure(ctx, err, "challenge_not_found", dErrors.CodeUnauthorized, "challenge not found")
		}
		return nil, "", verifyErr
	}

	record, created, err := s.identities.FindOrCreate(ctx, identity, []roles.Role{roles.RoleCitizen}, now)
	if err != nil {
		verifyErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
		return nil, "", verifyErr
	}
	if created {
		if s.metrics != nil {
			s.metrics.IdentitiesCreated.Inc()
		}
		s.logger.InfoContext(ctx, "identity created on first authentication",
			"identity_hash", tracer.HashDID(identity),
		)
	}
	if !record.Active {
		verifyErr = s.authFailure(ctx, sentinel.ErrInactive, "identity_inactive", dErrors.CodeForbidden, "identity deactivated")
		return nil, "", verifyErr
	}

	session := &Session{
		ID:        uuid.New().String(),
		Identity:  identity,
		Roles:     record.Roles,
		Nonce:     nonce,
		Device:    device.DisplayName(userAgent),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		verifyErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session")
		return nil, "", verifyErr
	}

	bearer, err := s.tokens.Generate(identity, session.ID, session.Roles, nonce, session.IssuedAt, session.ExpiresAt)
	if err != nil {
		verifyErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint session token")
		return nil, "", verifyErr
	}

	if s.metrics != nil {
		s.metrics.AuthSuccesses.Inc()
		s.metrics.ActiveSessions.Inc()
	}
	s.logger.InfoContext(ctx, "session established",
		"identity_hash", tracer.HashDID(identity),
		"session_id", session.ID,
		"device", session.Device,
	)
	return session, bearer, nil
}

// ValidateSession checks a bearer token and returns the authenticated
// principal. Expired sessions are rejected, never silently renewed.
func (s *Service) ValidateSession(ctx context.Context, bearer string) (*roles.Principal, error) {
	claims, err := s.tokens.Parse(bearer)
	if err != nil {
		if errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "session expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "session invalid")
	}

	session, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "session invalid")
	}
	if session.Expired(s.now()) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session expired")
	}

	return &roles.Principal{
		DID:       session.Identity,
		Roles:     session.Roles,
		SessionID: session.ID,
	}, nil
}

// authFailure records an authentication failure and returns the domain error.
func (s *Service) authFailure(ctx context.Context, cause error, reason string, code dErrors.Code, msg string) error {
	if s.metrics != nil {
		s.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
	s.logger.WarnContext(ctx, "authentication failed", "reason", reason)
	if cause == nil {
		return dErrors.New(code, msg)
	}
	return dErrors.Wrap(cause, code, msg)
}

// translateUpstream maps collaborator failures to retryable domain errors.
func (s *Service) translateUpstream(ctx context.Context, err error, collaborator string) error {
	if s.metrics != nil && (errors.Is(err, sentinel.ErrTimeout) || errors.Is(err, sentinel.ErrUnavailable)) {
		s.metrics.UpstreamFailures.WithLabelValues(collaborator).Inc()
	}
	switch {
	case errors.Is(err, sentinel.ErrTimeout):
		return dErrors.Wrap(err, dErrors.CodeTimeout, collaborator+" timed out")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, collaborator+" unavailable")
	case errors.Is(err, sentinel.ErrNotFound):
		return s.authFailure(ctx, err, "key_not_found", dErrors.CodeUnauthorized, "no key material for identity")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, collaborator+" call failed")
	}
}

func validateDID(identity string) error {
	if identity == "" {
		return dErrors.New(dErrors.CodeBadRequest, "identity is required")
	}
	if !strings.HasPrefix(identity, "did:") {
		return dErrors.New(dErrors.CodeBadRequest, "identity must be a did: identifier")
	}
	return nil
}

func newNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random nonce: %w", err)
	}
	return base58.Encode(buf), nil
}
