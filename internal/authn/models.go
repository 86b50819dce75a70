package authn

import (
	"time"

	"certis/internal/roles"
)

// Challenge is a single-use random value an identity must sign to prove
// private-key control. Lifecycle: Pending until consumed by a successful
// verification (terminal) or discarded at expiry (terminal). A wrong signature
// leaves the challenge pending so the caller may retry with the correct key.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Identity  string    `json:"identity"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the challenge is past its validity window.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Session is the time-bounded, role-carrying credential issued after a
// successful challenge verification. It is ephemeral and garbage-collected
// after its validity window.
type Session struct {
	ID        string       `json:"id"`
	Identity  string       `json:"identity"`
	Roles     []roles.Role `json:"roles"`
	Nonce     string       `json:"nonce"`
	Device    string       `json:"device,omitempty"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Expired reports whether the session is past its validity window.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
