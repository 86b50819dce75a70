package keyring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certis/pkg/sentinel"
)

// Collaborator calls may block on network I/O; these wrappers bound every call
// with the configured upstream timeout so callers never hang silently.
// Deadline hits surface as sentinel.ErrTimeout, which services translate into
// the retryable timeout domain error.

// TimeoutSigner bounds every Signer call with a deadline.
type TimeoutSigner struct {
	inner   Signer
	timeout time.Duration
}

// NewTimeoutSigner wraps a signer with a per-call timeout.
func NewTimeoutSigner(inner Signer, timeout time.Duration) *TimeoutSigner {
	return &TimeoutSigner{inner: inner, timeout: timeout}
}

func (s *TimeoutSigner) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sig, err := s.inner.Sign(ctx, payload)
	return sig, translateDeadline(err, "signer")
}

func (s *TimeoutSigner) PublicKey(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	pub, err := s.inner.PublicKey(ctx)
	return pub, translateDeadline(err, "signer")
}

// TimeoutDirectory bounds every Directory call with a deadline.
type TimeoutDirectory struct {
	inner   Directory
	timeout time.Duration
}

// NewTimeoutDirectory wraps a directory with a per-call timeout.
func NewTimeoutDirectory(inner Directory, timeout time.Duration) *TimeoutDirectory {
	return &TimeoutDirectory{inner: inner, timeout: timeout}
}

func (d *TimeoutDirectory) Resolve(ctx context.Context, did string) (*KeyInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	info, err := d.inner.Resolve(ctx, did)
	return info, translateDeadline(err, "directory")
}

func translateDeadline(err error, collaborator string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s call timed out: %w", collaborator, sentinel.ErrTimeout)
	}
	return err
}

// Verify interfaces are satisfied.
var (
	_ Signer    = (*TimeoutSigner)(nil)
	_ Directory = (*TimeoutDirectory)(nil)
)
