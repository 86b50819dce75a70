// Package keyring defines the external cryptographic collaborators: a signer
// capability producing signatures over opaque payloads, and a directory that
// resolves an identity to its current public key material. The core treats
// both as untrusted-network I/O; calls are bounded by the configured upstream
// timeout and are never retried internally, since a retry risks double-signing.
package keyring

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
)

// KeyInfo is the directory's view of an identity's current key material.
// KeyEpoch increments whenever the identity rotates its key; verifiers must
// always resolve the current epoch rather than trusting a cached key.
type KeyInfo struct {
	PublicKey []byte
	KeyEpoch  uint64
}

// Signer produces signatures over opaque byte payloads.
// Error Contract: sentinel.ErrTimeout on deadline, sentinel.ErrUnavailable on
// transport failure.
type Signer interface {
	Sign(ctx context.Context, payload []byte) ([]byte, error)
	PublicKey(ctx context.Context) ([]byte, error)
}

// Directory maps an identity string to its currently valid public key material.
// Error Contract: sentinel.ErrNotFound when the identity is unknown,
// sentinel.ErrTimeout / sentinel.ErrUnavailable for upstream failures.
type Directory interface {
	Resolve(ctx context.Context, did string) (*KeyInfo, error)
}
