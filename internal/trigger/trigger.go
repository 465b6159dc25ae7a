// Package trigger decides which requirements a tool invocation activates
// (spec §4.C13).
//
// Grounded on original_source/hooks/lib/strategy_utils.py (trigger-matching
// helper shared by every strategy) and the teacher's
// hooks/lib/safety/detection.go (case-insensitive regex scanning of a Bash
// command string).
package trigger

import (
	"regexp"
	"strings"
	"sync"

	"requirements/internal/logging"
	"requirements/internal/policy"
)

var log = logging.For("trigger")

var (
	compileMu sync.Mutex
	compiled  = map[string]*regexp.Regexp{}
)

// Matches reports whether any of triggers activates for (toolName,
// command). A bare-string trigger matches on tool name only; a
// {tool, command_pattern} trigger additionally requires a case-insensitive
// regex search against command to succeed. An invalid regex on one trigger
// is skipped with a warning — other triggers still get evaluated (spec
// §4.C13).
func Matches(toolName, command string, triggers []policy.Trigger) bool {
	for _, t := range triggers {
		if t.Tool != toolName {
			continue
		}
		if t.CommandPattern == "" {
			return true
		}
		re, ok := compile(t.CommandPattern)
		if !ok {
			continue
		}
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

func compile(pattern string) (*regexp.Regexp, bool) {
	compileMu.Lock()
	defer compileMu.Unlock()

	if re, ok := compiled[pattern]; ok {
		return re, re != nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		log.Error("invalid command_pattern, skipping trigger", "pattern", pattern, "error", err)
		compiled[pattern] = nil
		return nil, false
	}
	compiled[pattern] = re
	return re, true
}

// MatchingRequirements filters requirements to those whose triggers fire for
// (toolName, command), in the document's deterministic order.
func MatchingRequirements(toolName, command string, reqs []*policy.Requirement) []*policy.Requirement {
	var out []*policy.Requirement
	for _, r := range reqs {
		if Matches(toolName, command, r.Triggers) {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeToolPrefix reports whether toolName begins with prefix,
// case-sensitively — tool names are exact identifiers in the host protocol
// (e.g. "Write", "MultiEdit"), so this is a plain HasPrefix, not a regex.
func NormalizeToolPrefix(toolName, prefix string) bool {
	return strings.HasPrefix(toolName, prefix)
}
