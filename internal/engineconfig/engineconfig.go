// Package engineconfig loads the engine's own ambient settings — never the
// project policy (that cascade is explicitly out of scope per spec §1; see
// internal/policy for the consumed, already-merged view).
//
// Grounded on the teacher's system/runtime/lib/config/config.go: a single
// TOML file, struct-tagged, loaded once at process start, defaulted
// silently on any read failure (missing file, malformed TOML) rather than
// erroring — the teacher never treats its own config as load-bearing enough
// to fail a run over.
package engineconfig

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the engine's ambient configuration, read from
// $HOME/.claude/requirements-engine.toml (overridable via
// REQUIREMENTS_ENGINE_CONFIG for tests and CLI overrides).
type Config struct {
	Log struct {
		Path    string `toml:"path"`
		Console string `toml:"console"` // "silent" | "warn" | "debug"
	} `toml:"log"`

	Cache struct {
		DefaultCacheTTLSeconds    int `toml:"default_cache_ttl_seconds"`
		DefaultApprovalTTLSeconds int `toml:"default_approval_ttl_seconds"`
		DedupTTLSeconds           int `toml:"dedup_ttl_seconds"`
	} `toml:"cache"`
}

// Default returns the configuration the engine uses when no file is present.
func Default() Config {
	var c Config
	c.Log.Console = "warn"
	c.Cache.DefaultCacheTTLSeconds = 60
	c.Cache.DefaultApprovalTTLSeconds = 300
	c.Cache.DedupTTLSeconds = 5
	return c
}

// Load reads the ambient config file, falling back to Default() on any
// error (missing file, malformed TOML) — matching the teacher's
// never-fail-over-its-own-config discipline.
func Load() Config {
	cfg := Default()

	path := os.Getenv("REQUIREMENTS_ENGINE_CONFIG")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg
		}
		path = filepath.Join(home, ".claude", "requirements-engine.toml")
	}

	var onDisk Config
	if _, err := toml.DecodeFile(path, &onDisk); err != nil {
		return cfg
	}
	if onDisk.Log.Path != "" {
		cfg.Log.Path = onDisk.Log.Path
	}
	if onDisk.Log.Console != "" {
		cfg.Log.Console = onDisk.Log.Console
	}
	if onDisk.Cache.DefaultCacheTTLSeconds > 0 {
		cfg.Cache.DefaultCacheTTLSeconds = onDisk.Cache.DefaultCacheTTLSeconds
	}
	if onDisk.Cache.DefaultApprovalTTLSeconds > 0 {
		cfg.Cache.DefaultApprovalTTLSeconds = onDisk.Cache.DefaultApprovalTTLSeconds
	}
	if onDisk.Cache.DedupTTLSeconds > 0 {
		cfg.Cache.DedupTTLSeconds = onDisk.Cache.DedupTTLSeconds
	}
	return cfg
}
