// Package calccache is the TTL-scoped cache of calculator results (spec
// §3, §4.C4), stored at <tempdir>/claude-req-calc-cache-<uid>.json.
//
// Grounded on original_source/hooks/lib/calculation_cache.py: get(key, ttl)
// returns the payload only if its stored timestamp is within ttl; set(key,
// payload) always overwrites; never consulted to decide correctness, only
// to skip recomputation (spec §2).
package calccache

import (
	"fmt"
	"os"
	"time"

	"requirements/internal/atomicstore"
)

// Result is a calculator's cached output (spec §4.C7: {value, summary,
// ...extras}), stored opaquely alongside the timestamp it was cached at.
type Result struct {
	Value   float64        `json:"value"`
	Summary string         `json:"summary"`
	Extra   map[string]any `json:"extra,omitempty"`
}

type entry struct {
	CachedAt int64  `json:"cached_at"`
	Result   Result `json:"result"`
}

type document struct {
	Entries map[string]entry `json:"entries"`
}

// Path returns the calculation cache's path for the current user.
func Path() string {
	return fmt.Sprintf("%s/claude-req-calc-cache-%d.json", os.TempDir(), os.Getuid())
}

func load() *document {
	doc := &document{Entries: map[string]entry{}}
	atomicstore.Read(Path(), doc)
	if doc.Entries == nil {
		doc.Entries = map[string]entry{}
	}
	return doc
}

// Key builds the cache key spec §4.C4 specifies: <project>:<branch>:<requirement>.
func Key(project, branch, requirement string) string {
	return project + ":" + branch + ":" + requirement
}

// Get returns the cached result for key if it was set within ttl.
func Get(key string, ttl time.Duration) (Result, bool) {
	doc := load()
	e, ok := doc.Entries[key]
	if !ok {
		return Result{}, false
	}
	if time.Since(time.Unix(e.CachedAt, 0)) > ttl {
		return Result{}, false
	}
	return e.Result, true
}

// Set overwrites key's cached result, stamped with the current time.
func Set(key string, result Result) {
	doc := load()
	doc.Entries[key] = entry{CachedAt: time.Now().Unix(), Result: result}
	atomicstore.Write(Path(), doc)
}
