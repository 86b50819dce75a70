package identity

import (
	"time"

	"certis/internal/roles"
)

// Identity is a subject known to the system, keyed by its decentralized
// identifier. Records are created on first successful authentication and are
// never deleted, only deactivated.
type Identity struct {
	DID       string       `json:"did"`
	Roles     []roles.Role `json:"roles"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}

// HasRole reports whether the identity holds the given role.
func (i *Identity) HasRole(role roles.Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}
