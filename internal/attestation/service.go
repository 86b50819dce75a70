package attestation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certis/internal/claim"
	"certis/internal/keyring"
	"certis/internal/platform/metrics"
	"certis/internal/platform/tracer"
	"certis/internal/roles"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/sentinel"
)

// Store defines the persistence interface for attestations.
// Error Contract: CreateIfNoneActive returns sentinel.ErrAlreadyAttested when
// the claim already has a non-revoked attestation; Revoke returns
// sentinel.ErrAlreadyRevoked when revocation already happened.
type Store interface {
	CreateIfNoneActive(ctx context.Context, a *Attestation) error
	FindByID(ctx context.Context, id string) (*Attestation, error)
	Revoke(ctx context.Context, id string, now time.Time) (*Attestation, error)
}

// ClaimResolver resolves claims being attested.
type ClaimResolver interface {
	Lookup(ctx context.Context, id string) (*claim.Claim, error)
}

// Service is the attestation engine.
type Service struct {
	store     Store
	claims    ClaimResolver
	signer    keyring.Signer
	directory keyring.Directory

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

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the attestation engine.
func NewService(store Store, claims ClaimResolver, signer keyring.Signer, directory keyring.Directory, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		claims:    claims,
		signer:    signer,
		directory: directory,
		now:       time.Now,
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

// Attest records the principal vouching for a claim. At most one non-revoked
// attestation may exist per claim; under concurrent calls exactly one wins and
// the rest see a conflict. The record is anchored by the signer's signature
// over its canonical bytes.
func (s *Service) Attest(ctx context.Context, principal *roles.Principal, claimID string) (*Attestation, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanAttest,
		tracer.String(tracer.AttrClaimID, claimID),
	)
	var attestErr error
	defer func() { span.End(attestErr) }()

	if err := roles.Authorize(principal, roles.PermAttest); err != nil {
		attestErr = err
		return nil, err
	}
	if claimID == "" {
		attestErr = dErrors.New(dErrors.CodeBadRequest, "claim id is required")
		return nil, attestErr
	}

	c, err := s.claims.Lookup(ctx, claimID)
	if err != nil {
		attestErr = err
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrCTypeID, c.CredentialTypeID))

	createdAt := s.now()
	signature, err := s.signer.Sign(ctx, AnchorBytes(claimID, principal.DID, c.CredentialTypeID, createdAt))
	if err != nil {
		attestErr = s.translateUpstream(err, "signer")
		return nil, attestErr
	}

	a := &Attestation{
		ID:               uuid.New().String(),
		ClaimID:          claimID,
		Attester:         principal.DID,
		CredentialTypeID: c.CredentialTypeID,
		Signature:        signature,
		CreatedAt:        createdAt,
	}
	if err := s.store.CreateIfNoneActive(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyAttested) {
			attestErr = dErrors.Wrap(err, dErrors.CodeConflict, "claim already attested")
			return nil, attestErr
		}
		attestErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to store attestation")
		return nil, attestErr
	}

	if s.metrics != nil {
		s.metrics.AttestationsIssued.Inc()
	}
	s.logger.InfoContext(ctx, "attestation issued",
		"attestation_id", a.ID,
		"claim_id", claimID,
		"attester_hash", tracer.HashDID(principal.DID),
	)
	return a, nil
}

// Revoke marks an attestation revoked. Only the original attester or a
// principal allowed to revoke any attestation may do so. Revocation is
// monotonic; a second revoke surfaces a conflict rather than succeeding
// silently.
func (s *Service) Revoke(ctx context.Context, principal *roles.Principal, attestationID string) (*Attestation, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRevoke)
	var revokeErr error
	defer func() { span.End(revokeErr) }()

	if err := roles.Authorize(principal, roles.PermRevokeAttestation); err != nil {
		revokeErr = err
		return nil, err
	}
	if attestationID == "" {
		revokeErr = dErrors.New(dErrors.CodeBadRequest, "attestation id is required")
		return nil, revokeErr
	}

	a, err := s.store.FindByID(ctx, attestationID)
	if err != nil {
		revokeErr = dErrors.Wrap(err, dErrors.CodeNotFound, "attestation not found")
		return nil, revokeErr
	}
	span.SetAttributes(tracer.String(tracer.AttrClaimID, a.ClaimID))

	if a.Attester != principal.DID {
		if err := roles.Authorize(principal, roles.PermRevokeAnyAttestation); err != nil {
			revokeErr = dErrors.New(dErrors.CodeForbidden, "only the original attester may revoke")
			return nil, revokeErr
		}
	}

	revoked, err := s.store.Revoke(ctx, attestationID, s.now())
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyRevoked) {
			revokeErr = dErrors.Wrap(err, dErrors.CodeConflict, "attestation already revoked")
			return nil, revokeErr
		}
		revokeErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke attestation")
		return nil, revokeErr
	}

	if s.metrics != nil {
		s.metrics.AttestationsRevoked.Inc()
	}
	s.logger.InfoContext(ctx, "attestation revoked",
		"attestation_id", attestationID,
		"claim_id", revoked.ClaimID,
	)
	return revoked, nil
}

// Verify checks an attestation's anchoring signature against the attester's
// current public key. It is a pure read: Valid means the signature verifies
// AND the attestation is not revoked.
func (s *Service) Verify(ctx context.Context, attestationID string) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify)
	var verifyErr error
	defer func() { span.End(verifyErr) }()

	if attestationID == "" {
		verifyErr = dErrors.New(dErrors.CodeBadRequest, "attestation id is required")
		return nil, verifyErr
	}

	a, err := s.store.FindByID(ctx, attestationID)
	if err != nil {
		verifyErr = dErrors.Wrap(err, dErrors.CodeNotFound, "attestation not found")
		return nil, verifyErr
	}

	keyInfo, err := s.directory.Resolve(ctx, a.Attester)
	if err != nil {
		verifyErr = s.translateUpstream(err, "directory")
		return nil, verifyErr
	}
	span.SetAttributes(tracer.Int64(tracer.AttrKeyEpoch, int64(keyInfo.KeyEpoch)))

	sigOK := keyring.Verify(keyInfo.PublicKey, AnchorBytes(a.ClaimID, a.Attester, a.CredentialTypeID, a.CreatedAt), a.Signature)
	report := &Report{
		AttestationID: a.ID,
		ClaimID:       a.ClaimID,
		Attester:      a.Attester,
		Revoked:       a.Revoked,
		Valid:         sigOK && !a.Revoked,
	}
	span.SetAttributes(
		tracer.Bool(tracer.AttrValid, report.Valid),
		tracer.Bool(tracer.AttrRevoked, report.Revoked),
	)

	if s.metrics != nil {
		s.metrics.Verifications.WithLabelValues(verificationOutcome(report, sigOK)).Inc()
	}
	return report, nil
}

func verificationOutcome(r *Report, sigOK bool) string {
	switch {
	case r.Valid:
		return "valid"
	case r.Revoked:
		return "revoked"
	case !sigOK:
		return "signature_mismatch"
	default:
		return "invalid"
	}
}

// translateUpstream maps collaborator failures to retryable domain errors.
func (s *Service) translateUpstream(err error, collaborator string) error {
	if s.metrics != nil && (errors.Is(err, sentinel.ErrTimeout) || errors.Is(err, sentinel.ErrUnavailable)) {
		s.metrics.UpstreamFailures.WithLabelValues(collaborator).Inc()
	}
	switch {
	case errors.Is(err, sentinel.ErrTimeout):
		return dErrors.Wrap(err, dErrors.CodeTimeout, collaborator+" timed out")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, collaborator+" unavailable")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "no key material for attester")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, collaborator+" call failed")
	}
}
