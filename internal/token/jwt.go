// Package token mints and parses the opaque bearer credential returned by the
// authenticator. The wire encoding is an HS256 JWT; its semantic contents are
// the session fields (identity, roles, nonce, validity window).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"certis/internal/roles"
	"certis/pkg/sentinel"
)

// SessionClaims are the JWT claims carried by a session token.
type SessionClaims struct {
	SessionID string   `json:"sid"`
	Roles     []string `json:"roles"`
	Nonce     string   `json:"nonce"`
	jwt.RegisteredClaims
}

// Service handles session token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

// NewService creates a token service with the given HMAC signing key.
func NewService(signingKey string, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Generate mints a signed session token.
func (s *Service) Generate(did string, sessionID string, sessionRoles []roles.Role, nonce string, issuedAt, expiresAt time.Time) (string, error) {
	roleNames := make([]string, len(sessionRoles))
	for i, r := range sessionRoles {
		roleNames[i] = string(r)
	}

	claims := SessionClaims{
		SessionID: sessionID,
		Roles:     roleNames,
		Nonce:     nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   did,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates a session token and returns its claims.
// Expired tokens surface sentinel.ErrExpired so callers can distinguish
// expiry from tampering; any other failure is sentinel.ErrInvalidState.
func (s *Service) Parse(tokenString string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("session token expired: %w", sentinel.ErrExpired)
		}
		return nil, fmt.Errorf("invalid session token: %w", sentinel.ErrInvalidState)
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid session token claims: %w", sentinel.ErrInvalidState)
	}
	return claims, nil
}

// RolesOf converts the string role names back to the closed role set,
// dropping anything outside it.
func (c *SessionClaims) RolesOf() []roles.Role {
	out := make([]roles.Role, 0, len(c.Roles))
	for _, name := range c.Roles {
		r := roles.Role(name)
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}
