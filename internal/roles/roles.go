// Package roles implements the role-authorization gate. The role set is
// closed and the role-to-permission mapping is a declared table, not an
// inferred hierarchy: ADMIN holding every permission is an explicit entry.
package roles

import (
	dErrors "certis/pkg/domain-errors"
)

// Role is one of the enumerated roles an identity may hold.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAttester Role = "ATTESTER"
	RoleCitizen  Role = "CITIZEN"
)

// Valid reports whether the role belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAttester, RoleCitizen:
		return true
	}
	return false
}

// Permission names a gated operation.
type Permission string

const (
	PermRegisterCType        Permission = "register_ctype"
	PermSubmitClaim          Permission = "submit_claim"
	PermAttest               Permission = "attest"
	PermRevokeAttestation    Permission = "revoke_attestation"
	PermRevokeAnyAttestation Permission = "revoke_any_attestation"
	PermManageIdentities     Permission = "manage_identities"
)

// permissionTable is the declared role-to-permission mapping.
// Membership here is the single source of truth for authorization decisions.
var permissionTable = map[Role]map[Permission]bool{
	RoleAdmin: {
		PermRegisterCType:        true,
		PermSubmitClaim:          true,
		PermAttest:               true,
		PermRevokeAttestation:    true,
		PermRevokeAnyAttestation: true,
		PermManageIdentities:     true,
	},
	RoleAttester: {
		PermSubmitClaim:       true,
		PermAttest:            true,
		PermRevokeAttestation: true,
	},
	RoleCitizen: {
		PermRegisterCType: true,
		PermSubmitClaim:   true,
	},
}

// Principal is an authenticated identity with its effective roles, as
// established by the challenge-response authenticator. Core operations take
// the principal as an explicit parameter rather than reading ambient state.
type Principal struct {
	DID       string
	Roles     []Role
	SessionID string
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize gates an operation on the principal's roles.
// It returns nil when allowed, CodeUnauthorized when the principal is missing,
// and CodeForbidden when no held role grants the permission.
func Authorize(principal *Principal, permission Permission) error {
	if principal == nil || principal.DID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "unauthenticated")
	}
	for _, role := range principal.Roles {
		if permissionTable[role][permission] {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "insufficient role for "+string(permission))
}
