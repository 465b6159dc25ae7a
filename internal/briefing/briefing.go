// Package briefing builds the adaptive session-context status briefing of
// spec §4.C12: compact (~150 tokens), standard (~400 tokens), or rich
// (~800 tokens), selected by the SessionStart event's `source` field.
//
// Grounded on the teacher's system/runtime/lib/display package (box/table/
// header formatting primitives — adapted here with text/tabwriter rather
// than the teacher's ANSI-box renderer, since hook output is plain markdown
// injected as additionalContext, not a terminal) and
// original_source/hooks/handle-session-start.py for density selection.
package briefing

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"requirements/internal/policy"
)

// Density is one of the three briefing tiers.
type Density string

const (
	Compact  Density = "compact"
	Standard Density = "standard"
	Rich     Density = "rich"
)

// SelectDensity maps a SessionStart `source` to a Density, honoring an
// explicit override (spec §4.C12 "Mode selection").
func SelectDensity(source string, explicit string) Density {
	switch Density(explicit) {
	case Compact, Standard, Rich:
		return Density(explicit)
	}
	switch source {
	case "compact":
		return Compact
	case "resume":
		return Standard
	default:
		return Rich
	}
}

// RequirementStatus is one requirement's resolved state for display.
type RequirementStatus struct {
	Name         string
	Type         policy.Type
	Description  string
	Satisfied    bool
	ExtraContext string // e.g. "not on protected branch", "no other sessions"
	Triggers     []string
	ResolveHint  string // e.g. "req satisfy foo" or "skill: my-skill"
	IsSkillHint  bool
}

// Input is everything the briefing needs about the current session.
type Input struct {
	Branch    string
	SessionID string
	Statuses  []RequirementStatus
}

func (in Input) counts() (satisfied, total int) {
	for _, s := range in.Statuses {
		total++
		if s.Satisfied {
			satisfied++
		}
	}
	return
}

// groupedActions returns unresolved requirements' resolve hints, skill
// commands sorted ahead of manual commands (spec §4.C12 "Resolve actions
// are grouped by short-form").
func groupedActions(in Input) (skills, manual []string) {
	var skillStatuses, manualStatuses []RequirementStatus
	for _, s := range in.Statuses {
		if s.Satisfied || s.ResolveHint == "" {
			continue
		}
		if s.IsSkillHint {
			skillStatuses = append(skillStatuses, s)
		} else {
			manualStatuses = append(manualStatuses, s)
		}
	}
	sort.Slice(skillStatuses, func(i, j int) bool { return skillStatuses[i].Name < skillStatuses[j].Name })
	sort.Slice(manualStatuses, func(i, j int) bool { return manualStatuses[i].Name < manualStatuses[j].Name })
	for _, s := range skillStatuses {
		skills = append(skills, fmt.Sprintf("%s: %s", s.Name, s.ResolveHint))
	}
	for _, s := range manualStatuses {
		manual = append(manual, fmt.Sprintf("%s: %s", s.Name, s.ResolveHint))
	}
	return
}

// Build renders the briefing at the requested density.
func Build(in Input, density Density) string {
	switch density {
	case Compact:
		return buildCompact(in)
	case Standard:
		return buildStandard(in)
	default:
		return buildRich(in)
	}
}

func buildCompact(in Input) string {
	satisfied, total := in.counts()
	var b strings.Builder
	fmt.Fprintf(&b, "Requirements: %d/%d satisfied\n", satisfied, total)

	skills, manual := groupedActions(in)
	for _, s := range skills {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	for _, m := range manual {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	if len(skills) == 0 && len(manual) == 0 {
		fmt.Fprintf(&b, "All requirements satisfied.\n")
	} else {
		fmt.Fprintf(&b, "Run `req status` for details.\n")
	}
	return b.String()
}

func buildStandard(in Input) string {
	satisfied, total := in.counts()
	var b strings.Builder
	fmt.Fprintf(&b, "Requirements: %d/%d satisfied (branch %s, session %s)\n\n", satisfied, total, in.Branch, in.SessionID)

	skills, manual := groupedActions(in)
	if len(skills) > 0 {
		fmt.Fprintf(&b, "Quick start:\n")
		for _, s := range skills {
			fmt.Fprintf(&b, "  %s\n", s)
		}
		fmt.Fprintln(&b)
	}

	tw := tabwriter.NewWriter(&b, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "Requirement\tStatus\tTriggers\tResolve")
	for _, s := range in.Statuses {
		status := "satisfied"
		if !s.Satisfied {
			status = "unsatisfied"
		}
		if s.ExtraContext != "" {
			status += " (" + s.ExtraContext + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, status, strings.Join(s.Triggers, ","), s.ResolveHint)
	}
	tw.Flush()

	_ = manual
	fmt.Fprintf(&b, "\nRun `req status` for the full picture.\n")
	return b.String()
}

func buildRich(in Input) string {
	var b strings.Builder
	b.WriteString(buildStandard(in))
	b.WriteString("\nScope reference:\n")
	b.WriteString("  session     - satisfied only in this session\n")
	b.WriteString("  branch      - satisfied for every session on this branch\n")
	b.WriteString("  permanent   - satisfied forever, on every branch\n")
	b.WriteString("  single_use  - like session, but auto-cleared after the triggering action\n")
	b.WriteString("\nWorkflow:\n")
	b.WriteString("  1. Attempt your edit/commit; a blocked requirement explains what's missing.\n")
	b.WriteString("  2. Resolve via its skill command, or `req satisfy <name>`.\n")
	b.WriteString("  3. `req status` any time to see the current picture.\n")
	b.WriteString("\nIf this briefing looks stale, run `req status`.\n")
	return b.String()
}
