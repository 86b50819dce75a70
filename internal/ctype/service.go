package ctype

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certis/internal/platform/metrics"
	"certis/internal/roles"
	dErrors "certis/pkg/domain-errors"
)

// Store defines the persistence interface for credential types.
// Error Contract: FindByID returns sentinel.ErrNotFound (wrapped) when no
// record matches; CreateIfAbsent reports whether an insert happened.
type Store interface {
	CreateIfAbsent(ctx context.Context, ct *CredentialType) (*CredentialType, bool, error)
	FindByID(ctx context.Context, id string) (*CredentialType, error)
}

// Service is the credential type registry.
type Service struct {
	store   Store
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

// NewService constructs the registry.
func NewService(store Store, opts ...Option) *Service {
	svc := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Register stores a new credential type, or returns the existing one when the
// normalized schema already exists. Idempotency is by content: title and
// network of the first registration win.
func (s *Service) Register(ctx context.Context, principal *roles.Principal, title string, schema Schema, network string) (*CredentialType, error) {
	if err := roles.Authorize(principal, roles.PermRegisterCType); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "title is required")
	}

	hash, err := ContentHash(schema)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid schema")
	}

	ct := &CredentialType{
		ID:          uuid.New().String(),
		ContentHash: hash,
		Title:       title,
		Schema:      schema,
		Network:     network,
		CreatedAt:   s.now(),
	}
	stored, created, err := s.store.CreateIfAbsent(ctx, ct)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential type")
	}

	if created {
		if s.metrics != nil {
			s.metrics.CTypesRegistered.Inc()
		}
		s.logger.InfoContext(ctx, "credential type registered",
			"ctype_id", stored.ID,
			"content_hash", stored.ContentHash,
			"fields", len(stored.Schema),
		)
	}
	return stored, nil
}

// Lookup returns the credential type with the given ID.
func (s *Service) Lookup(ctx context.Context, id string) (*CredentialType, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "credential type id is required")
	}
	ct, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "credential type not found")
	}
	return ct, nil
}
