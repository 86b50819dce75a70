package claim

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certis/internal/ctype"
	"certis/internal/platform/metrics"
	"certis/internal/roles"
	dErrors "certis/pkg/domain-errors"
)

// Store defines the persistence interface for claims.
// Error Contract: FindByID returns sentinel.ErrNotFound (wrapped) when no
// claim matches.
type Store interface {
	Create(ctx context.Context, c *Claim) error
	FindByID(ctx context.Context, id string) (*Claim, error)
}

// CredentialTypeRegistry resolves credential types for validation.
type CredentialTypeRegistry interface {
	Lookup(ctx context.Context, id string) (*ctype.CredentialType, error)
}

// Service accepts and serves claims.
type Service struct {
	store   Store
	ctypes  CredentialTypeRegistry
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the claim service.
func NewService(store Store, ctypes CredentialTypeRegistry, opts ...Option) *Service {
	svc := &Service{
		store:  store,
		ctypes: ctypes,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Submit validates the payload against the credential type's schema and stores
// the claim when it passes. The principal becomes the claim's owner. A payload
// that fails validation is rejected in full; nothing is stored, and the error
// names every offending field.
func (s *Service) Submit(ctx context.Context, principal *roles.Principal, credentialTypeID string, payload map[string]any) (*Claim, error) {
	if err := roles.Authorize(principal, roles.PermSubmitClaim); err != nil {
		return nil, err
	}
	if credentialTypeID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "credential type id is required")
	}
	if payload == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "payload is required")
	}

	ct, err := s.ctypes.Lookup(ctx, credentialTypeID)
	if err != nil {
		return nil, err
	}

	if violation := validatePayload(ct.Schema, payload); violation != nil {
		if s.metrics != nil {
			s.metrics.ClaimsRejected.Inc()
		}
		s.logger.WarnContext(ctx, "claim rejected",
			"ctype_id", credentialTypeID,
			"violations", len(violation.Violations),
		)
		return nil, dErrors.Wrap(violation, dErrors.CodeValidation, violation.Error())
	}

	c := &Claim{
		ID:               uuid.New().String(),
		CredentialTypeID: credentialTypeID,
		Owner:            principal.DID,
		Payload:          payload,
		CreatedAt:        s.now(),
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store claim")
	}

	if s.metrics != nil {
		s.metrics.ClaimsSubmitted.Inc()
	}
	s.logger.InfoContext(ctx, "claim submitted",
		"claim_id", c.ID,
		"ctype_id", credentialTypeID,
	)
	return c, nil
}

// Lookup returns the claim with the given ID.
func (s *Service) Lookup(ctx context.Context, id string) (*Claim, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "claim id is required")
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "claim not found")
	}
	return c, nil
}
