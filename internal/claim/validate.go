package claim

import (
	"fmt"
	"math"
	"sort"

	"certis/internal/ctype"
)

// validatePayload checks the payload against the schema closed-world: every
// declared field must be present with the declared type and no undeclared
// field may appear. All violations are collected so the caller sees the full
// picture in one pass.
func validatePayload(schema ctype.Schema, payload map[string]any) *SchemaViolationError {
	var violations []FieldViolation

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, ok := payload[name]
		if !ok {
			violations = append(violations, FieldViolation{Field: name, Reason: "missing"})
			continue
		}
		if reason := checkType(schema[name], value); reason != "" {
			violations = append(violations, FieldViolation{Field: name, Reason: reason})
		}
	}

	extras := make([]string, 0)
	for name := range payload {
		if _, ok := schema[name]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		violations = append(violations, FieldViolation{Field: name, Reason: "not declared by credential type"})
	}

	if len(violations) > 0 {
		return &SchemaViolationError{Violations: violations}
	}
	return nil
}

// checkType validates a decoded JSON value against a declared field type.
// JSON numbers decode as float64, so "integer" means a float64 with no
// fractional part.
func checkType(fieldType ctype.FieldType, value any) string {
	switch fieldType {
	case ctype.FieldString:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("expected string, got %T", value)
		}
	case ctype.FieldBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("expected boolean, got %T", value)
		}
	case ctype.FieldNumber:
		if _, ok := value.(float64); !ok {
			return fmt.Sprintf("expected number, got %T", value)
		}
	case ctype.FieldInteger:
		n, ok := value.(float64)
		if !ok {
			return fmt.Sprintf("expected integer, got %T", value)
		}
		if n != math.Trunc(n) {
			return "expected integer, got fractional number"
		}
	default:
		return fmt.Sprintf("unknown field type %q", fieldType)
	}
	return ""
}
