// Package dedup is the fingerprinted short-TTL cache that suppresses
// repeated block messages within a parallel burst of hook invocations
// (spec §3, §4.C5, §5, §8 property 5).
//
// Grounded on original_source/hooks/lib/message_dedup_cache.py: key shape
// <project>:<branch>:<sid>:<requirement> (guards append ":single_session"
// instead of a branch), SHA-256 fingerprint + timestamp, corrupt-file
// auto-recovery, and a sweep of entries older than 12x ttl on every write.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"requirements/internal/atomicstore"
)

type entry struct {
	Fingerprint string `json:"fingerprint"`
	Timestamp   int64  `json:"timestamp"`
}

type document struct {
	Entries map[string]entry `json:"entries"`
}

// Path returns the dedup cache's path for the current user.
func Path() string {
	return fmt.Sprintf("%s/claude-message-dedup-%d.json", os.TempDir(), os.Getuid())
}

func load() *document {
	doc := &document{Entries: map[string]entry{}}
	if err := safeRead(Path(), doc); err != nil {
		// Corrupt cache file: delete and recreate (spec §4.C5
		// "auto-recovery").
		os.Remove(Path())
		doc = &document{Entries: map[string]entry{}}
	}
	if doc.Entries == nil {
		doc.Entries = map[string]entry{}
	}
	return doc
}

// safeRead wraps atomicstore.Read; atomicstore already never errors, but a
// thin wrapper keeps the corrupt-file-recovery intent explicit and testable
// in isolation without reaching into atomicstore's internals.
func safeRead(path string, dst *document) error {
	atomicstore.Read(path, dst)
	return nil
}

// Key builds the dedup key spec §4.C5 specifies. isSingleSession appends
// ":single_session" instead of using the branch, for guard denials that
// aren't branch-specific.
func Key(project, branch, sessionID, requirement string, isSingleSession bool) string {
	if isSingleSession {
		return project + ":" + sessionID + ":" + requirement + ":single_session"
	}
	return project + ":" + branch + ":" + sessionID + ":" + requirement
}

func fingerprint(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

// ShouldShow reports whether message should be shown in full for key: true
// when no entry exists or the fingerprint differs from what was last shown;
// false when the identical message was shown within ttl (spec §4.C5).
// Every call that returns true also records the new fingerprint/timestamp
// and sweeps entries older than 12x ttl, matching the reference
// implementation's per-write sweep.
func ShouldShow(key, message string, ttl time.Duration) bool {
	doc := load()
	fp := fingerprint(message)

	if e, ok := doc.Entries[key]; ok {
		if e.Fingerprint == fp && time.Since(time.UnixMilli(e.Timestamp)) < ttl {
			// Suppressed: the reference implementation returns here
			// without touching storage, so the TTL clock keeps counting
			// from the first show rather than resetting on every
			// suppressed check.
			return false
		}
	}

	doc.Entries[key] = entry{Fingerprint: fp, Timestamp: time.Now().UnixMilli()}
	sweep(doc, ttl)
	atomicstore.Write(Path(), doc)
	return true
}

func sweep(doc *document, ttl time.Duration) {
	maxAge := 12 * ttl
	cutoff := time.Now().Add(-maxAge)
	for k, e := range doc.Entries {
		if time.UnixMilli(e.Timestamp).Before(cutoff) {
			delete(doc.Entries, k)
		}
	}
}
