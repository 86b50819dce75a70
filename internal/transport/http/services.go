package httptransport

import (
	"context"

	"certis/internal/attestation"
	"certis/internal/authn"
	"certis/internal/claim"
	"certis/internal/ctype"
	"certis/internal/roles"
)

// AuthnService is the challenge-response authenticator behind /auth. It also
// satisfies middleware.SessionValidator for the protected routes.
type AuthnService interface {
	IssueChallenge(ctx context.Context, identity string) (*authn.Challenge, error)
	VerifyResponse(ctx context.Context, identity, nonce string, signature []byte, userAgent string) (*authn.Session, string, error)
	ValidateSession(ctx context.Context, token string) (*roles.Principal, error)
}

// CTypeService is the credential type registry behind /ctypes.
type CTypeService interface {
	Register(ctx context.Context, principal *roles.Principal, title string, schema ctype.Schema, network string) (*ctype.CredentialType, error)
	Lookup(ctx context.Context, id string) (*ctype.CredentialType, error)
}

// ClaimService is the claim store behind /claims.
type ClaimService interface {
	Submit(ctx context.Context, principal *roles.Principal, credentialTypeID string, payload map[string]any) (*claim.Claim, error)
	Lookup(ctx context.Context, id string) (*claim.Claim, error)
}

// AttestationService is the attestation engine behind /attestations.
type AttestationService interface {
	Attest(ctx context.Context, principal *roles.Principal, claimID string) (*attestation.Attestation, error)
	Revoke(ctx context.Context, principal *roles.Principal, attestationID string) (*attestation.Attestation, error)
	Verify(ctx context.Context, attestationID string) (*attestation.Report, error)
}

// IdentityAdmin exposes the identity management operations behind
// /admin/identities.
type IdentityAdmin interface {
	AssignRole(ctx context.Context, did string, role roles.Role) error
	Deactivate(ctx context.Context, did string) error
}
