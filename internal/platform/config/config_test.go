package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 2*time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.NotEmpty(t, cfg.JWTSigningKey, "dev fallback key must be applied")
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "certis.yaml")
	data := []byte("addr: \":9090\"\nchallenge_ttl: 30s\njwt_signing_key: file-key\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("CERTIS_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.ChallengeTTL)
	assert.Equal(t, "file-key", cfg.JWTSigningKey)
	// Untouched fields keep defaults.
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "certis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o600))
	t.Setenv("CERTIS_CONFIG", path)
	t.Setenv("CERTIS_ADDR", ":7070")
	t.Setenv("CERTIS_SESSION_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoadBadFile(t *testing.T) {
	t.Setenv("CERTIS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
