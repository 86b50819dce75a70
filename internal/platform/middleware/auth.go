package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"certis/internal/roles"
)

// SessionValidator checks a bearer token and returns the authenticated principal.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*roles.Principal, error)
}

type principalKey struct{}

// GetPrincipal retrieves the authenticated principal from the context.
// Returns nil when the request is unauthenticated.
func GetPrincipal(ctx context.Context) *roles.Principal {
	p, ok := ctx.Value(principalKey{}).(*roles.Principal)
	if !ok {
		return nil
	}
	return p
}

// WithPrincipal injects a principal into the context. Exported for handler tests.
func WithPrincipal(ctx context.Context, p *roles.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// RequireSession validates the Authorization bearer token and injects the
// principal into the request context. Requests without a valid session get 401.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			principal, err := validator.ValidateSession(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid session",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
