// Package claim implements the claim store. A claim is an immutable payload
// submitted by an owner against a registered credential type; validation is
// closed-world, so the payload must match the schema exactly.
package claim

import (
	"fmt"
	"strings"
	"time"
)

// Claim is an accepted, immutable payload.
type Claim struct {
	ID               string
	CredentialTypeID string
	Owner            string
	Payload          map[string]any
	CreatedAt        time.Time
}

// FieldViolation names a single offending field and why it was rejected.
type FieldViolation struct {
	Field  string
	Reason string
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// SchemaViolationError reports every field that failed validation. Nothing is
// stored when validation fails.
type SchemaViolationError struct {
	Violations []FieldViolation
}

func (e *SchemaViolationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "schema violation: " + strings.Join(parts, "; ")
}
