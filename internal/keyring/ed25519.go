package keyring

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"

	"certis/pkg/sentinel"
)

// DIDPrefix is the method prefix for identities whose key material encodes the
// ed25519 public key directly.
const DIDPrefix = "did:certis:"

// LocalSigner is an in-process ed25519 signer for dev and test environments.
// Production deployments inject a remote signer behind the same interface.
type LocalSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// GenerateSigner creates a LocalSigner with a fresh ed25519 keypair.
func GenerateSigner() (*LocalSigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 keypair: %w", err)
	}
	return &LocalSigner{priv: priv, pub: pub}, nil
}

// NewSignerFromSeed builds a LocalSigner from a 32-byte seed.
func NewSignerFromSeed(seed []byte) (*LocalSigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes: %w", ed25519.SeedSize, sentinel.ErrInvalidInput)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &LocalSigner{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// Sign signs the payload with the local private key.
func (s *LocalSigner) Sign(_ context.Context, payload []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, payload), nil
}

// PublicKey returns the signer's public key bytes.
func (s *LocalSigner) PublicKey(_ context.Context) ([]byte, error) {
	out := make([]byte, len(s.pub))
	copy(out, s.pub)
	return out, nil
}

// Seed returns the 32-byte seed the keypair derives from, for persisting keys
// generated by the dev tooling.
func (s *LocalSigner) Seed() []byte {
	return s.priv.Seed()
}

// DID derives the signer's identity from its public key.
func (s *LocalSigner) DID() string {
	return DIDFromPublicKey(s.pub)
}

// DIDFromPublicKey renders a public key as a did:certis identifier using
// base58 encoding of the raw key bytes.
func DIDFromPublicKey(pub []byte) string {
	return DIDPrefix + base58.Encode(pub)
}

// Verify checks an ed25519 signature over payload against the given public key.
// It is stateless and CPU-bound; callers may run it fully in parallel.
func Verify(pub, payload, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, sig)
}

// LocalDirectory is an in-memory directory for dev and test environments.
// Identities register their public key; Resolve always returns the latest
// registered key with its epoch.
type LocalDirectory struct {
	mu   sync.RWMutex
	keys map[string]*KeyInfo
}

// NewLocalDirectory creates an empty in-memory directory.
func NewLocalDirectory() *LocalDirectory {
	return &LocalDirectory{keys: make(map[string]*KeyInfo)}
}

// Register stores or rotates the public key for a DID. Rotation bumps the key epoch.
func (d *LocalDirectory) Register(did string, pub []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	epoch := uint64(1)
	if existing, ok := d.keys[did]; ok {
		epoch = existing.KeyEpoch + 1
	}
	key := make([]byte, len(pub))
	copy(key, pub)
	d.keys[did] = &KeyInfo{PublicKey: key, KeyEpoch: epoch}
}

// Resolve returns the current key material for a DID.
func (d *LocalDirectory) Resolve(_ context.Context, did string) (*KeyInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	info, ok := d.keys[did]
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", did, sentinel.ErrNotFound)
	}
	key := make([]byte, len(info.PublicKey))
	copy(key, info.PublicKey)
	return &KeyInfo{PublicKey: key, KeyEpoch: info.KeyEpoch}, nil
}

// Verify interfaces are satisfied.
var (
	_ Signer    = (*LocalSigner)(nil)
	_ Directory = (*LocalDirectory)(nil)
)
