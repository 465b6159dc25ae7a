// Package policy is a read-only typed view over the merged policy document
// (spec §3, §4.C14). Loading the global -> project -> local cascade is
// explicitly out of scope (spec §1); this package only validates and narrows
// an already-merged map into typed accessors the rest of the engine trusts.
//
// Grounded on original_source/hooks/lib/config.py / config_utils.py (the
// accessor surface: is_enabled, all requirements, typed per-type config) and
// the teacher's system/runtime/lib/config/config.go ("typed accessor over a
// loosely structured document" pattern).
package policy

import (
	"encoding/json"
	"regexp"

	"requirements/internal/logging"
)

var log = logging.For("policy")

// Type is a requirement's strategy kind.
type Type string

const (
	Blocking Type = "blocking"
	Guard    Type = "guard"
	Dynamic  Type = "dynamic"
)

// Scope is a satisfaction's lifetime class (spec glossary).
type Scope string

const (
	ScopeSession    Scope = "session"
	ScopeBranch     Scope = "branch"
	ScopePermanent  Scope = "permanent"
	ScopeSingleUse  Scope = "single_use"
)

// Trigger is a single activation predicate (spec §3, §4.C13).
type Trigger struct {
	Tool           string `json:"tool" yaml:"tool"`
	CommandPattern string `json:"command_pattern,omitempty" yaml:"command_pattern,omitempty"`
}

// Requirement is the common + type-specific shape of one policy entry.
type Requirement struct {
	Name       string
	Type       Type
	Enabled    bool
	Scope      Scope
	Triggers   []Trigger
	Message    string
	AutoResolveSkill string
	Description      string
	SatisfiedBySkill []string

	// Blocking-specific.
	Checklist []string

	// Guard-specific.
	GuardType          string
	ProtectedBranches  []string

	// Dynamic-specific.
	Calculator      string
	ThresholdWarn   *float64
	ThresholdBlock  float64
	CacheTTLSeconds int
	ApprovalTTLSeconds int
	BlockingMessage string

	valid bool
}

// Document is the parsed, validated policy (spec §3).
type Document struct {
	Enabled      bool
	Requirements map[string]*Requirement

	// order is the deterministic requirement-name iteration order the
	// document was loaded in (spec §4.C11 "Ordering guarantee").
	order []string

	Stop struct {
		VerifyRequirements bool
		VerifyScopes       []Scope
	}
	AutoDenyDangerous bool
}

// rawRequirement mirrors the JSON shape of one policy.requirements entry
// before type-narrowing and validation.
type rawRequirement struct {
	Type             string          `json:"type"`
	Enabled          *bool           `json:"enabled"`
	Scope            string          `json:"scope"`
	TriggerTools     json.RawMessage `json:"trigger_tools"`
	Message          string          `json:"message"`
	AutoResolveSkill string          `json:"auto_resolve_skill"`
	Description      string          `json:"description"`
	SatisfiedBySkill []string        `json:"satisfied_by_skill"`

	Checklist []string `json:"checklist"`

	GuardType         string   `json:"guard_type"`
	ProtectedBranches []string `json:"protected_branches"`

	Calculator string `json:"calculator"`
	Thresholds *struct {
		Warn  *float64 `json:"warn"`
		Block *float64 `json:"block"`
	} `json:"thresholds"`
	CacheTTL        *int   `json:"cache_ttl"`
	ApprovalTTL     *int   `json:"approval_ttl"`
	BlockingMessage string `json:"blocking_message"`
}

type rawDocument struct {
	Enabled      bool                       `json:"enabled"`
	Requirements map[string]rawRequirement  `json:"requirements"`
	Stop         *struct {
		VerifyRequirements *bool    `json:"verify_requirements"`
		VerifyScopes       []string `json:"verify_scopes"`
	} `json:"stop"`
	AutoDenyDangerous *bool `json:"auto_deny_dangerous"`
}

// Parse validates raw (already-merged) JSON policy bytes into a Document.
// Invalid requirements are disabled and logged, never fatal (spec §3
// invariants, §7 "Configuration error" row): Parse itself never errors.
func Parse(data []byte) *Document {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Error("malformed policy document, treating as disabled", "error", err)
		return &Document{Enabled: false, Requirements: map[string]*Requirement{}}
	}

	doc := &Document{
		Enabled:      raw.Enabled,
		Requirements: map[string]*Requirement{},
	}
	doc.Stop.VerifyRequirements = true
	doc.Stop.VerifyScopes = []Scope{ScopeSession}
	if raw.Stop != nil {
		if raw.Stop.VerifyRequirements != nil {
			doc.Stop.VerifyRequirements = *raw.Stop.VerifyRequirements
		}
		if len(raw.Stop.VerifyScopes) > 0 {
			scopes := make([]Scope, 0, len(raw.Stop.VerifyScopes))
			for _, s := range raw.Stop.VerifyScopes {
				scopes = append(scopes, Scope(s))
			}
			doc.Stop.VerifyScopes = scopes
		}
	}
	doc.AutoDenyDangerous = true
	if raw.AutoDenyDangerous != nil {
		doc.AutoDenyDangerous = *raw.AutoDenyDangerous
	}

	// Deterministic order: requirement names are iterated in ascending
	// lexical order (spec §4.C11 "Ordering guarantee" — the order the
	// policy reader enumerates them in). A real config loader that
	// preserves source-file order could supply its own sequence; absent
	// that, sorted-by-name is the simplest deterministic choice.
	names := make([]string, 0, len(raw.Requirements))
	for name := range raw.Requirements {
		names = append(names, name)
	}
	sortStrings(names)

	for _, name := range names {
		req := parseRequirement(name, raw.Requirements[name])
		doc.Requirements[name] = req
		doc.order = append(doc.order, name)
	}

	return doc
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func parseRequirement(name string, r rawRequirement) *Requirement {
	req := &Requirement{
		Name:             name,
		Type:             Type(r.Type),
		Enabled:          true,
		Scope:            Scope(r.Scope),
		Message:          r.Message,
		AutoResolveSkill: r.AutoResolveSkill,
		Description:      r.Description,
		SatisfiedBySkill: r.SatisfiedBySkill,
		Checklist:        r.Checklist,
		GuardType:        r.GuardType,
		ProtectedBranches: r.ProtectedBranches,
		Calculator:       r.Calculator,
		CacheTTLSeconds:  60,
		ApprovalTTLSeconds: 300,
		BlockingMessage:  r.BlockingMessage,
	}
	if r.Enabled != nil {
		req.Enabled = *r.Enabled
	}
	if len(req.ProtectedBranches) == 0 {
		req.ProtectedBranches = []string{"main", "master"}
	}

	switch req.Type {
	case Blocking, Guard, Dynamic:
		// recognized
	default:
		log.Error("unrecognized requirement type, disabling", "requirement", name, "type", r.Type)
		req.Enabled = false
		return req
	}

	if len(r.TriggerTools) > 0 {
		triggers, err := parseTriggers(r.TriggerTools)
		if err != nil {
			log.Error("malformed trigger_tools, disabling requirement", "requirement", name, "error", err)
			req.Enabled = false
			return req
		}
		req.Triggers = triggers
	}

	if req.Type == Dynamic {
		if req.Calculator == "" {
			log.Error("dynamic requirement missing calculator, disabling", "requirement", name)
			req.Enabled = false
			return req
		}
		if r.Thresholds == nil || r.Thresholds.Block == nil {
			log.Error("dynamic requirement missing thresholds.block, disabling", "requirement", name)
			req.Enabled = false
			return req
		}
		if *r.Thresholds.Block < 0 {
			log.Error("dynamic requirement has negative block threshold, disabling", "requirement", name)
			req.Enabled = false
			return req
		}
		req.ThresholdBlock = *r.Thresholds.Block
		if r.Thresholds.Warn != nil {
			if *r.Thresholds.Warn < 0 {
				log.Error("dynamic requirement has negative warn threshold, disabling", "requirement", name)
				req.Enabled = false
				return req
			}
			if *r.Thresholds.Warn > req.ThresholdBlock {
				log.Error("dynamic requirement warn > block, disabling", "requirement", name)
				req.Enabled = false
				return req
			}
			warn := *r.Thresholds.Warn
			req.ThresholdWarn = &warn
		}
		if r.CacheTTL != nil && *r.CacheTTL > 0 {
			req.CacheTTLSeconds = *r.CacheTTL
		}
		if r.ApprovalTTL != nil && *r.ApprovalTTL > 0 {
			req.ApprovalTTLSeconds = *r.ApprovalTTL
		}
	}

	req.valid = true
	return req
}

func parseTriggers(raw json.RawMessage) ([]Trigger, error) {
	// trigger_tools is either a list of bare strings or a list of
	// {tool, command_pattern} objects (spec §3).
	var asStrings []string
	if err := json.Unmarshal(raw, &asStrings); err == nil {
		triggers := make([]Trigger, 0, len(asStrings))
		for _, s := range asStrings {
			triggers = append(triggers, Trigger{Tool: s})
		}
		return triggers, nil
	}

	var asObjects []Trigger
	if err := json.Unmarshal(raw, &asObjects); err != nil {
		return nil, err
	}
	for _, t := range asObjects {
		if t.CommandPattern != "" {
			if _, err := regexp.Compile("(?i)" + t.CommandPattern); err != nil {
				log.Error("invalid command_pattern regex, skipping trigger", "pattern", t.CommandPattern, "error", err)
				continue
			}
		}
	}
	return asObjects, nil
}

// IsEnabled reports the framework master switch.
func (d *Document) IsEnabled() bool { return d.Enabled }

// AllRequirements returns requirements in deterministic iteration order.
func (d *Document) AllRequirements() []*Requirement {
	out := make([]*Requirement, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.Requirements[name])
	}
	return out
}

// IsRequirementEnabled reports whether name is present, valid, and enabled.
func (d *Document) IsRequirementEnabled(name string) bool {
	r, ok := d.Requirements[name]
	return ok && r.valid && r.Enabled
}

// Get returns the named requirement, or nil.
func (d *Document) Get(name string) *Requirement {
	return d.Requirements[name]
}
