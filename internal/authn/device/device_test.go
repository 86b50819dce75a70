package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const chromeMacUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Unknown Device", DisplayName(""))

	name := DisplayName(chromeMacUA)
	assert.Contains(t, name, "Chrome")
	assert.Contains(t, name, " on ")
}

func TestFingerprintStable(t *testing.T) {
	assert.Empty(t, Fingerprint(""))

	a := Fingerprint(chromeMacUA)
	b := Fingerprint(chromeMacUA)
	assert.Equal(t, a, b, "same UA must produce the same fingerprint")
	assert.Len(t, a, 64)

	// Patch-level version changes keep the fingerprint stable.
	patched := Fingerprint("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.99.5 Safari/537.36")
	assert.Equal(t, a, patched)
}
