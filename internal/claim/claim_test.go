package claim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certis/internal/ctype"
	"certis/internal/roles"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/sentinel"
)

func newClaimFixture(t *testing.T) (*Service, *ctype.CredentialType) {
	t.Helper()
	ctx := context.Background()

	registry := ctype.NewService(ctype.NewInMemoryStore())
	ct, err := registry.Register(ctx, owner(), "Proof of Age", ctype.Schema{
		"age":      ctype.FieldInteger,
		"name":     ctype.FieldString,
		"height":   ctype.FieldNumber,
		"verified": ctype.FieldBoolean,
	}, "mainnet")
	require.NoError(t, err)

	return NewService(NewInMemoryStore(), registry), ct
}

func owner() *roles.Principal {
	return &roles.Principal{DID: "did:certis:alice", Roles: []roles.Role{roles.RoleCitizen}}
}

func validPayload() map[string]any {
	return map[string]any{
		"age":      float64(30),
		"name":     "Alice",
		"height":   1.68,
		"verified": true,
	}
}

func TestSubmitValidPayload(t *testing.T) {
	svc, ct := newClaimFixture(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, owner(), ct.ID, validPayload())
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, ct.ID, c.CredentialTypeID)
	assert.Equal(t, "did:certis:alice", c.Owner)

	found, err := svc.Lookup(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Payload, found.Payload)
}

func TestSubmitSchemaViolations(t *testing.T) {
	svc, ct := newClaimFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(p map[string]any)
		field  string
		reason string
	}{
		{
			name:   "missing field",
			mutate: func(p map[string]any) { delete(p, "age") },
			field:  "age",
			reason: "missing",
		},
		{
			name:   "unknown field",
			mutate: func(p map[string]any) { p["extra"] = "x" },
			field:  "extra",
			reason: "not declared",
		},
		{
			name:   "wrong type",
			mutate: func(p map[string]any) { p["name"] = 42.0 },
			field:  "name",
			reason: "expected string",
		},
		{
			name:   "fractional integer",
			mutate: func(p map[string]any) { p["age"] = 30.5 },
			field:  "age",
			reason: "fractional",
		},
		{
			name:   "boolean as string",
			mutate: func(p map[string]any) { p["verified"] = "true" },
			field:  "verified",
			reason: "expected boolean",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validPayload()
			tt.mutate(payload)

			_, err := svc.Submit(ctx, owner(), ct.ID, payload)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

			var violation *SchemaViolationError
			require.True(t, errors.As(err, &violation), "error must name the offending fields")
			found := false
			for _, v := range violation.Violations {
				if v.Field == tt.field {
					found = true
					assert.Contains(t, v.Reason, tt.reason)
				}
			}
			assert.True(t, found, "expected a violation for field %q", tt.field)
		})
	}
}

func TestSubmitCollectsAllViolations(t *testing.T) {
	svc, ct := newClaimFixture(t)

	_, err := svc.Submit(context.Background(), owner(), ct.ID, map[string]any{
		"name":  7.0,
		"extra": "x",
	})
	require.Error(t, err)

	var violation *SchemaViolationError
	require.True(t, errors.As(err, &violation))
	// age missing, height missing, verified missing, name wrong type, extra unknown.
	assert.Len(t, violation.Violations, 5)
}

func TestSubmitNothingStoredOnRejection(t *testing.T) {
	store := NewInMemoryStore()
	registry := ctype.NewService(ctype.NewInMemoryStore())
	ct, err := registry.Register(context.Background(), owner(), "Proof of Age", ctype.Schema{"age": ctype.FieldInteger}, "")
	require.NoError(t, err)

	svc := NewService(store, registry)
	_, err = svc.Submit(context.Background(), owner(), ct.ID, map[string]any{"age": "thirty"})
	require.Error(t, err)

	// Integer accepted whole, so the store stays reachable for a valid retry.
	c, err := svc.Submit(context.Background(), owner(), ct.ID, map[string]any{"age": float64(30)})
	require.NoError(t, err)

	found, err := store.FindByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)
}

func TestSubmitUnknownCredentialType(t *testing.T) {
	svc, _ := newClaimFixture(t)

	_, err := svc.Submit(context.Background(), owner(), "missing", validPayload())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSubmitAuthorization(t *testing.T) {
	svc, ct := newClaimFixture(t)

	_, err := svc.Submit(context.Background(), nil, ct.ID, validPayload())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestLookupNotFound(t *testing.T) {
	svc, _ := newClaimFixture(t)

	_, err := svc.Lookup(context.Background(), "missing")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
