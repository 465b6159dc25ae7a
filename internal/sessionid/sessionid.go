// Package sessionid canonicalizes host session identifiers to the 8-hex-char
// form the rest of the engine keys state on (spec §3, §4.C2, §4.C3).
//
// Grounded on original_source/hooks/lib/session.py: the Python
// implementation's canonicalization is "take the first 8 hex characters of
// the session id"; longer or shorter ids degrade gracefully rather than
// erroring, matching the engine's fail-open discipline.
package sessionid

import "regexp"

// Length is the canonical width of a session key.
const Length = 8

var hexRun = regexp.MustCompile(`^[0-9a-fA-F]+`)

// Canonicalize reduces raw (a UUID, a longer hex string, or an already
// 8-char id) to its canonical 8-hex-char form.
//
// If raw has fewer than 8 hex characters at its head, the full hex-prefix is
// returned unchanged (never padded) — a short id is still usable as a map
// key, just not collision-resistant; that tradeoff belongs to the caller
// (CLAUDE_SESSION_ID can be operator-supplied and short in tests).
func Canonicalize(raw string) string {
	match := hexRun.FindString(raw)
	if match == "" {
		// UUIDs and most host session ids are hex already; fall back to a
		// plain prefix of the raw string so *something* stable comes back.
		if len(raw) <= Length {
			return raw
		}
		return raw[:Length]
	}
	if len(match) <= Length {
		return match
	}
	return match[:Length]
}

// IsCanonical reports whether key is already in 8-hex-char canonical form.
func IsCanonical(key string) bool {
	return len(key) == Length && hexRun.MatchString(key) && len(hexRun.FindString(key)) == Length
}
