// Package attestation implements the attestation engine: attesting claims,
// revoking attestations, and verifying the anchoring signature of a record.
package attestation

import (
	"fmt"
	"time"
)

// Attestation records that an attester vouched for a claim. The record is
// anchored by a signature over its canonical bytes, so any holder of the
// attester's public key can verify it without trusting this service.
type Attestation struct {
	ID               string
	ClaimID          string
	Attester         string
	CredentialTypeID string
	Signature        []byte
	Revoked          bool
	CreatedAt        time.Time
	RevokedAt        *time.Time
}

// AnchorBytes returns the canonical byte representation the anchoring
// signature covers. The timestamp is pinned to UTC with nanosecond precision
// so the bytes are recomputable from the stored record alone.
func AnchorBytes(claimID, attester, credentialTypeID string, createdAt time.Time) []byte {
	return []byte(fmt.Sprintf("certis/attestation/v1\n%s\n%s\n%s\n%s\n",
		claimID, attester, credentialTypeID, createdAt.UTC().Format(time.RFC3339Nano)))
}

// Report is the result of verifying an attestation.
type Report struct {
	AttestationID string
	ClaimID       string
	Attester      string
	Revoked       bool
	Valid         bool
}
