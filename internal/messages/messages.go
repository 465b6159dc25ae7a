// Package messages is the C6 message-provider contract (spec §4.C6, §9
// Design Notes: "delegate to an injected message provider; the engine's
// contract is six strings + a substitution map"). Strategies depend only on
// the Provider interface; how a bundle is sourced is the provider's concern.
//
// Grounded on original_source/hooks/lib/messages.py (the YAML cascade this
// reference provider re-implements) and message_validator.py, folded in here
// as Validate per SPEC_FULL.md's supplemented-features section.
package messages

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"requirements/internal/logging"
)

var log = logging.For("messages")

// Bundle is the six-string contract every strategy consumes (spec §4.C6).
type Bundle struct {
	BlockingMessage string
	ShortMessage    string
	SuccessMessage  string
	Header          string
	ActionLabel     string
	FallbackText    string
}

// Substitutions is the minimum set of keys a Provider must accept (spec
// §4.C6): {req_name, session_id, branch, project_dir, auto_resolve_skill,
// value, block_threshold, warn_threshold, summary, base_branch}. Additional
// keys are permitted; providers ignore ones they don't use.
type Substitutions map[string]string

// Provider resolves a requirement's message bundle. The engine is agnostic
// to the source: a YAML cascade (this package's default), a database, a
// remote template service — anything implementing this interface.
type Provider interface {
	Resolve(requirementName, requirementType string, subs Substitutions) Bundle
}

// Validate reports whether bundle is structurally usable (folded in from
// original_source/hooks/lib/message_validator.py): a bundle with no
// blocking_message and no fallback_text can't produce a denial a human can
// act on.
func Validate(b Bundle) error {
	if strings.TrimSpace(b.BlockingMessage) == "" && strings.TrimSpace(b.FallbackText) == "" {
		return fmt.Errorf("messages: bundle has neither blocking_message nor fallback_text")
	}
	if strings.TrimSpace(b.ShortMessage) == "" {
		b.ShortMessage = b.BlockingMessage
	}
	return nil
}

// substitute replaces {key} placeholders in tmpl from subs. Unknown
// placeholders are left as-is rather than erroring — a provider should never
// be able to turn a template typo into a crashed hook.
func substitute(tmpl string, subs Substitutions) string {
	out := tmpl
	for k, v := range subs {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// templateSet is one requirement-type's set of six templates, as stored in
// the YAML cascade.
type templateSet struct {
	BlockingMessage string `yaml:"blocking_message"`
	ShortMessage    string `yaml:"short_message"`
	SuccessMessage  string `yaml:"success_message"`
	Header          string `yaml:"header"`
	ActionLabel     string `yaml:"action_label"`
	FallbackText    string `yaml:"fallback_text"`
}

// cascadeFile is the on-disk shape: per-requirement overrides, falling back
// to a per-type default, falling back to a global default.
type cascadeFile struct {
	Defaults     map[string]templateSet `yaml:"defaults"`      // keyed by requirement type
	Requirements map[string]templateSet `yaml:"requirements"`  // keyed by requirement name
}

// YAMLProvider is the reference Provider (spec §1: "message template
// rendering... externalized YAML cascade").
type YAMLProvider struct {
	cascade cascadeFile
}

// LoadYAMLProvider reads a message cascade file. A missing or malformed file
// yields an empty cascade — every Resolve call then falls through to the
// built-in fallback text, never erroring (spec §7 graceful degradation).
func LoadYAMLProvider(path string) *YAMLProvider {
	p := &YAMLProvider{cascade: cascadeFile{
		Defaults:     map[string]templateSet{},
		Requirements: map[string]templateSet{},
	}}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("message cascade unreadable, using built-in fallback text", "path", path, "error", err)
		return p
	}
	if err := yaml.Unmarshal(data, &p.cascade); err != nil {
		log.Warn("message cascade malformed, using built-in fallback text", "path", path, "error", err)
		p.cascade = cascadeFile{Defaults: map[string]templateSet{}, Requirements: map[string]templateSet{}}
	}
	return p
}

// Resolve implements Provider.
func (p *YAMLProvider) Resolve(requirementName, requirementType string, subs Substitutions) Bundle {
	set, ok := p.cascade.Requirements[requirementName]
	if !ok {
		set = p.cascade.Defaults[requirementType]
	}
	return Bundle{
		BlockingMessage: substitute(set.BlockingMessage, subs),
		ShortMessage:    substitute(set.ShortMessage, subs),
		SuccessMessage:  substitute(set.SuccessMessage, subs),
		Header:          substitute(set.Header, subs),
		ActionLabel:     substitute(set.ActionLabel, subs),
		FallbackText:    substitute(set.FallbackText, subs),
	}
}

// FallbackBundle builds the directive-first fallback used when no provider
// bundle is usable (spec §4.C8: "fall back to requirement.message with
// substitution, or to a built-in directive-first fallback naming the
// auto-resolve command").
func FallbackBundle(requirementName, rawMessage string, subs Substitutions) Bundle {
	if strings.TrimSpace(rawMessage) != "" {
		rendered := substitute(rawMessage, subs)
		return Bundle{
			BlockingMessage: rendered,
			ShortMessage:    rendered,
			FallbackText:    rendered,
		}
	}

	skill := subs["auto_resolve_skill"]
	var directive string
	if skill != "" {
		directive = fmt.Sprintf("Blocked: %s. Run the `%s` skill to resolve, or `req satisfy %s`.", requirementName, skill, requirementName)
	} else {
		directive = fmt.Sprintf("Blocked: %s. Run `req satisfy %s` to resolve.", requirementName, requirementName)
	}
	return Bundle{
		BlockingMessage: directive,
		ShortMessage:    fmt.Sprintf("Blocked: %s (waiting on resolution)", requirementName),
		FallbackText:    directive,
	}
}
