// Package strategy is the three-variant strategy dispatch of spec §4.C8-C10,
// §9 Design Notes ("express as a three-variant sum type behind a common
// capability set {check(event_ctx) -> Decision}, removing open-recursion
// hazards"). The policy reader's Type field selects the variant; there is no
// base class, just a closed switch.
//
// Grounded on original_source/hooks/lib/base_strategy.py,
// blocking_strategy.py, guard_strategy.py, dynamic_strategy.py.
package strategy

import (
	"time"

	"requirements/internal/branchstate"
	"requirements/internal/messages"
	"requirements/internal/policy"
)

// Outcome is a strategy's verdict (spec §1: PASS, BLOCK, WARN).
type Outcome int

const (
	Pass Outcome = iota
	Block
	Warn
)

// Decision is a strategy's result. Message is denial markdown for Block,
// or a short log line for Warn; it is empty for Pass.
type Decision struct {
	Outcome Outcome
	Message string
}

// Context bundles everything a strategy needs to evaluate one requirement
// for one event (spec §2 "Data flow (PreTool, the hot path)").
type Context struct {
	Requirement *policy.Requirement
	Branch      *branchstate.Document

	ProjectDir string
	BranchName string
	SessionID  string

	Provider messages.Provider
	DedupTTL time.Duration

	// OtherLiveSessions supports the single_session guard without this
	// package importing internal/registry directly (kept decoupled so
	// strategy stays a pure decision layer over injected data, per
	// spec §9's "removes open-recursion hazards").
	OtherLiveSessions func(project, excludeSID string) map[string]SessionAge
}

// SessionAge is the minimal shape the single_session guard needs about a
// competing session (spec §4.C9).
type SessionAge struct {
	SessionID  string
	StartedAt  int64
	LastActive int64
}

// NewSessionAge constructs a SessionAge — exported so internal/router can
// build the OtherLiveSessions callback from internal/registry.Entry without
// this package depending on registry.
func NewSessionAge(sessionID string, startedAt, lastActive int64) SessionAge {
	return SessionAge{SessionID: sessionID, StartedAt: startedAt, LastActive: lastActive}
}

// Strategy evaluates one requirement within a Context.
type Strategy interface {
	Check(ctx *Context) Decision
}

// For resolves the strategy implementation for req.Type (spec §4.C14's
// type-narrowed dispatch). Unknown types fail-open per spec §7 ("Unknown
// tool / unknown requirement type... skip the requirement").
func For(reqType policy.Type) (Strategy, bool) {
	switch reqType {
	case policy.Blocking:
		return BlockingStrategy{}, true
	case policy.Guard:
		return GuardStrategy{}, true
	case policy.Dynamic:
		return DynamicStrategy{}, true
	default:
		return nil, false
	}
}

func substitutionsFor(ctx *Context, extra map[string]string) messages.Substitutions {
	subs := messages.Substitutions{
		"req_name":           ctx.Requirement.Name,
		"session_id":         ctx.SessionID,
		"branch":             ctx.BranchName,
		"project_dir":        ctx.ProjectDir,
		"auto_resolve_skill": ctx.Requirement.AutoResolveSkill,
	}
	for k, v := range extra {
		subs[k] = v
	}
	return subs
}
