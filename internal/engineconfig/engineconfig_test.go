package engineconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	c := Default()
	assert.Equal(t, "warn", c.Log.Console)
	assert.Equal(t, 60, c.Cache.DefaultCacheTTLSeconds)
	assert.Equal(t, 300, c.Cache.DefaultApprovalTTLSeconds)
	assert.Equal(t, 5, c.Cache.DedupTTLSeconds)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	t.Setenv("REQUIREMENTS_ENGINE_CONFIG", filepath.Join(t.TempDir(), "does-not-exist.toml"))
	c := Load()
	assert.Equal(t, Default(), c)
}

func TestLoadMalformedTOMLReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is not [ valid toml"), 0o600))
	t.Setenv("REQUIREMENTS_ENGINE_CONFIG", path)

	c := Load()
	assert.Equal(t, Default(), c)
}

func TestLoadOverridesOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	data := `
[log]
console = "debug"

[cache]
dedup_ttl_seconds = 10
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv("REQUIREMENTS_ENGINE_CONFIG", path)

	c := Load()
	assert.Equal(t, "debug", c.Log.Console)
	assert.Equal(t, 10, c.Cache.DedupTTLSeconds)
	// unset fields keep their defaults.
	assert.Equal(t, 60, c.Cache.DefaultCacheTTLSeconds)
	assert.Equal(t, 300, c.Cache.DefaultApprovalTTLSeconds)
}

func TestLoadIgnoresZeroOrNegativeOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	data := `
[cache]
default_cache_ttl_seconds = -1
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv("REQUIREMENTS_ENGINE_CONFIG", path)

	c := Load()
	assert.Equal(t, 60, c.Cache.DefaultCacheTTLSeconds)
}
