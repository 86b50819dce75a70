package ctype

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ContentHash computes the content address of a schema: field names sorted,
// serialized as "name:type" lines, digested with BLAKE2b-256 and hex-encoded
// with a 0x prefix. The serialization is canonical so equal schemas always
// produce equal hashes regardless of declaration order.
func ContentHash(schema Schema) (string, error) {
	normalized, err := normalize(schema)
	if err != nil {
		return "", err
	}
	digest := blake2b.Sum256(normalized)
	return "0x" + hex.EncodeToString(digest[:]), nil
}

func normalize(schema Schema) ([]byte, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("schema must declare at least one field")
	}

	names := make([]string, 0, len(schema))
	for name := range schema {
		if name == "" {
			return nil, fmt.Errorf("schema field name must not be empty")
		}
		if strings.ContainsAny(name, ":\n") {
			return nil, fmt.Errorf("schema field name %q contains reserved characters", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fieldType := schema[name]
		if !fieldType.Valid() {
			return nil, fmt.Errorf("schema field %q has unknown type %q", name, fieldType)
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(string(fieldType))
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}
