package strategy

import (
	"fmt"
	"sort"
	"time"

	"requirements/internal/dedup"
	"requirements/internal/logging"
)

// GuardStrategy evaluates an environmental condition whose only
// satisfaction mechanism is a session-scoped emergency approval (spec
// §4.C9). Grounded on original_source/hooks/lib/guard_strategy.py.
type GuardStrategy struct{}

// Check implements Strategy.
func (GuardStrategy) Check(ctx *Context) Decision {
	req := ctx.Requirement

	// The emergency override: a session-scoped approval always passes,
	// regardless of guard_type (spec §4.C9, §9 "Guard emergency override").
	if ctx.Branch.IsApproved(req.Name, ctx.SessionID) {
		return Decision{Outcome: Pass}
	}

	switch req.GuardType {
	case "protected_branch":
		return checkProtectedBranch(ctx)
	case "single_session":
		return checkSingleSession(ctx)
	default:
		// Unknown guard type: pass with a warning log (spec §4.C9).
		logging.For("strategy").Warn("unknown guard_type, passing", "requirement", req.Name, "guard_type", req.GuardType)
		return Decision{Outcome: Pass}
	}
}

func checkProtectedBranch(ctx *Context) Decision {
	for _, b := range ctx.Requirement.ProtectedBranches {
		if b == ctx.BranchName {
			msg := fmt.Sprintf(
				"Blocked: this operation is restricted on protected branch `%s`.\n\n"+
					"- Create a feature branch: `git checkout -b feature/your-change`\n"+
					"- Or, if this really needs to happen here: `req approve %s`",
				ctx.BranchName, ctx.Requirement.Name,
			)
			key := dedup.Key(ctx.ProjectDir, ctx.BranchName, ctx.SessionID, ctx.Requirement.Name, false)
			if dedup.ShouldShow(key, msg, ctx.DedupTTL) {
				return Decision{Outcome: Block, Message: msg}
			}
			return Decision{Outcome: Block, Message: fmt.Sprintf("Blocked: %s (protected branch `%s`)", ctx.Requirement.Name, ctx.BranchName)}
		}
	}
	return Decision{Outcome: Pass}
}

func checkSingleSession(ctx *Context) Decision {
	if ctx.OtherLiveSessions == nil {
		return Decision{Outcome: Pass}
	}
	others := ctx.OtherLiveSessions(ctx.ProjectDir, ctx.SessionID)
	if len(others) == 0 {
		return Decision{Outcome: Pass}
	}

	sids := make([]string, 0, len(others))
	for sid := range others {
		sids = append(sids, sid)
	}
	sort.Strings(sids)

	lines := make([]string, 0, len(sids))
	now := time.Now().Unix()
	for _, sid := range sids {
		age := now - others[sid].LastActive
		lines = append(lines, fmt.Sprintf("- `%s` (%s)", sid, formatAge(age)))
	}

	msg := fmt.Sprintf(
		"Blocked: another session is already active on this project.\n\n%s\n\nApprove to proceed anyway: `req approve %s`",
		joinLines(lines), ctx.Requirement.Name,
	)
	key := dedup.Key(ctx.ProjectDir, ctx.BranchName, ctx.SessionID, ctx.Requirement.Name, true)
	if dedup.ShouldShow(key, msg, ctx.DedupTTL) {
		return Decision{Outcome: Block, Message: msg}
	}
	return Decision{Outcome: Block, Message: fmt.Sprintf("Blocked: %s (%d other session(s) active)", ctx.Requirement.Name, len(others))}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// formatAge renders an age in seconds as "Ns ago" / "Nm ago" / "Nh ago".
// Spec §9 Open Question 3 treats the 60s/3600s crossover points as
// contractual; this truncates rather than rounds.
func formatAge(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	default:
		return fmt.Sprintf("%dh ago", seconds/3600)
	}
}
