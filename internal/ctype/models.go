// Package ctype implements the credential type registry. A credential type is
// an immutable, content-addressed schema: registering the same normalized
// schema twice returns the existing record.
package ctype

import (
	"time"
)

// FieldType is one of the closed set of field types a schema may declare.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldInteger FieldType = "integer"
)

// Valid reports whether the field type belongs to the closed set.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldNumber, FieldBoolean, FieldInteger:
		return true
	}
	return false
}

// Schema is a flat object: field names mapped to their declared types.
type Schema map[string]FieldType

// CredentialType is a registered, immutable schema. ContentHash is the
// BLAKE2b-256 digest of the normalized schema, so two registrations with the
// same fields always collide onto the same record.
type CredentialType struct {
	ID          string
	ContentHash string
	Title       string
	Schema      Schema
	Network     string
	CreatedAt   time.Time
}
