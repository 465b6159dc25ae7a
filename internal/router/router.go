// Package router is the event dispatch layer of spec §4.C11: it maps each
// hook event to policy evaluation and side effects, and wraps every path in
// a fail-open envelope so the process never surfaces an unhandled error to
// the host.
//
// Grounded on the teacher's per-event cmd-* binaries (hooks/tool/cmd-pre-use,
// hooks/session/cmd-start, cmd-end, cmd-stop, cmd-pre-compact,
// hooks/prompt/cmd-submit — the named-entry-point dispatch pattern) and
// original_source/hooks/handle-*.py / check-requirements.py / clear-single-use.py
// / auto-satisfy-skills.py for the exact per-event behaviors the teacher's
// own hooks don't cover (PermissionRequest's dangerous-command table,
// SubagentStart's review-agent allowlist, TeammateIdle/TaskCompleted's team
// progress hooks, PostToolUseFailure's threshold counter).
package router

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"requirements/internal/branchstate"
	"requirements/internal/gitutil"
	"requirements/internal/hookio"
	"requirements/internal/logging"
	"requirements/internal/messages"
	"requirements/internal/metrics"
	"requirements/internal/policy"
	"requirements/internal/registry"
	"requirements/internal/strategy"
	"requirements/internal/trigger"
)

var log = logging.For("router")

// reviewAgentAllowlist is the fixed set of subagent types that receive a
// requirement-context preamble on SubagentStart (spec §4.C11 SubagentStart
// row), grounded on original_source/hooks/handle-subagent-start.py's
// REVIEW_AGENTS set.
var reviewAgentAllowlist = map[string]bool{
	"code-reviewer":                  true,
	"silent-failure-hunter":          true,
	"tool-validator":                 true,
	"test-analyzer":                  true,
	"type-design-analyzer":           true,
	"comment-analyzer":               true,
	"code-simplifier":                true,
	"backward-compatibility-checker": true,
	"adr-guardian":                   true,
	"codex-review-agent":             true,
	"solid-reviewer":                 true,
	"commit-planner":                 true,
}

// dangerousCommand is one auto-deny pattern for PermissionRequest (spec
// §4.C15 / §4.C11 PermissionRequest row).
type dangerousCommand struct {
	match  func(command string) bool
	reason string
}

var dangerousCommands = buildDangerousCommands()

// Deps bundles everything the router needs that the cmd/hook-* boundary is
// responsible for resolving (spec §1: loading the policy cascade and git
// context is out of this package's scope; it consumes an already-merged
// policy.Document and messages.Provider).
type Deps struct {
	Policy     *policy.Document
	Provider   messages.Provider
	ProjectDir string
	CommonDir  string
	Branch     string
	SessionID  string
	PID        int
	PPID       int
	DedupTTL   time.Duration

	// InjectContext controls whether SessionStart produces a status
	// briefing (spec §4.C11 SessionStart row "if inject_context=true").
	InjectContext bool
	// BuildBriefing renders the briefing text at the density the caller
	// already selected via internal/briefing.SelectDensity — injected so
	// this package doesn't need to depend on internal/briefing's Input
	// shape (spec §4.C12).
	BuildBriefing func() string

	// ClearSessionScopedOnEnd mirrors the "optionally clear session-scoped
	// facts if configured" SessionEnd clause (spec §4.C11).
	ClearSessionScopedOnEnd bool

	// TeamHooksEnabled gates TeammateIdle/TaskCompleted (spec §4.C11).
	TeamHooksEnabled       bool
	TeamKeepWorkingOnIdle  bool
	TeamValidateTaskOutput bool
}

// Kind is the shape of output the cmd/hook-* binary must encode.
type Kind int

const (
	None Kind = iota
	PreToolDeny
	StopBlock
	Context
	PermissionDeny
	Exit2 // TeammateIdle/TaskCompleted's "send feedback" exit code
)

// Output is what a Dispatch call decided; cmd/hook-* binaries translate this
// into the §6 wire envelopes (or exit 0 silently for Kind == None).
type Output struct {
	Kind          Kind
	Text          string
	HookEventName string
}

// Dispatch routes ev to the handler for its hook_event_name, wrapped in a
// recover so a panic anywhere in policy/strategy/state code degrades to
// None rather than crashing the host process (spec §7 "every path in the
// router is fail-open").
func Dispatch(d Deps, ev hookio.Event) (out Output) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in router, failing open", "event", ev.HookEventName, "recover", r)
			out = Output{}
		}
	}()

	if os.Getenv("CLAUDE_SKIP_REQUIREMENTS") != "" {
		return Output{}
	}

	switch ev.HookEventName {
	case "PreToolUse":
		return handlePreTool(d, ev)
	case "PostToolUse":
		return handlePostTool(d, ev)
	case "Stop":
		return handleStop(d, ev)
	case "SessionStart":
		return handleSessionStart(d, ev)
	case "SessionEnd":
		return handleSessionEnd(d, ev)
	case "UserPromptSubmit":
		return handlePromptSubmit(d, ev)
	case "PreCompact":
		return handlePreCompact(d, ev)
	case "PermissionRequest":
		return handlePermissionRequest(d, ev)
	case "SubagentStart":
		return handleSubagentStart(d, ev)
	case "PostToolUseFailure":
		return handlePostToolUseFailure(d, ev)
	case "TeammateIdle":
		return handleTeammateIdle(d, ev)
	case "TaskCompleted":
		return handleTaskCompleted(d, ev)
	default:
		return Output{}
	}
}

// requirementsEnabled reports the policy-level gate every event (except
// SessionEnd, which "always" runs per spec §4.C11) must pass first.
func requirementsEnabled(d Deps) bool {
	return d.Policy != nil && d.Policy.IsEnabled()
}

// ---- PreToolUse (spec §4.C11 PreTool row) ----------------------------------

func handlePreTool(d Deps, ev hookio.Event) Output {
	if !requirementsEnabled(d) {
		return Output{}
	}
	if d.ProjectDir == "" || d.Branch == "" {
		return Output{}
	}

	sid := d.SessionID
	registry.Update(sid, d.PID, d.PPID, d.ProjectDir, d.Branch)

	branch := branchstate.Load(d.CommonDir, d.ProjectDir, d.Branch)
	command := ev.ToolInputCommand()

	for _, req := range d.Policy.AllRequirements() {
		if !d.Policy.IsRequirementEnabled(req.Name) {
			continue
		}
		if !trigger.Matches(ev.ToolName, command, req.Triggers) {
			continue
		}

		branch.MarkTriggered(req.Name, sid)

		strat, ok := strategy.For(req.Type)
		if !ok {
			log.Error("unrecognized requirement type at dispatch, skipping", "requirement", req.Name)
			continue
		}

		ctx := &strategy.Context{
			Requirement: req,
			Branch:      branch,
			ProjectDir:  d.ProjectDir,
			BranchName:  d.Branch,
			SessionID:   sid,
			Provider:    d.Provider,
			DedupTTL:    d.DedupTTL,
			OtherLiveSessions: func(project, excludeSID string) map[string]strategy.SessionAge {
				others := registry.OtherLiveSessions(project, excludeSID)
				out := make(map[string]strategy.SessionAge, len(others))
				for k, e := range others {
					out[k] = strategy.NewSessionAge(k, e.StartedAt, e.LastActive)
				}
				return out
			},
		}

		decision := strat.Check(ctx)
		if decision.Outcome == strategy.Block {
			return Output{Kind: PreToolDeny, Text: decision.Message, HookEventName: "PreToolUse"}
		}
		// Warn outcomes are logged but never surfaced to the host (spec
		// §1: PASS/BLOCK/WARN — WARN is advisory-only, not a deny).
		if decision.Outcome == strategy.Warn {
			log.Warn("requirement warn", "requirement", req.Name, "message", decision.Message)
		}
	}

	return Output{}
}

// ---- PostToolUse (spec §4.C11 three PostTool rows) -------------------------

func handlePostTool(d Deps, ev hookio.Event) Output {
	if !requirementsEnabled(d) {
		return Output{}
	}
	sid := d.SessionID
	branch := branchstate.Load(d.CommonDir, d.ProjectDir, d.Branch)

	if ev.ToolName == "ExitPlanMode" {
		return handleExitPlanMode(d, branch, sid)
	}

	// auto-satisfy-skill: when the completed tool is a skill invocation,
	// satisfy every requirement that declares it via satisfied_by_skill
	// (original_source/hooks/auto-satisfy-skills.py).
	if skillName, ok := skillInvocationName(ev); ok {
		for _, req := range d.Policy.AllRequirements() {
			if !d.Policy.IsRequirementEnabled(req.Name) {
				continue
			}
			if !containsString(req.SatisfiedBySkill, skillName) {
				continue
			}
			metadata := map[string]any{"skill": skillName}
			if req.Scope == policy.ScopeSession || req.Scope == policy.ScopeSingleUse {
				branch.SatisfyForSession(req.Name, req.Scope, sid, "skill", metadata, 0)
			} else {
				branch.Satisfy(req.Name, req.Scope, "skill", metadata, 0)
			}
			metrics.RecordSatisfaction(d.CommonDir, sid, req.Name)
		}
	}

	// clear-single-use: if the tool matched a single_use requirement's
	// trigger, re-arm it for the next invocation
	// (original_source/hooks/clear-single-use.py).
	command := ev.ToolInputCommand()
	for _, req := range d.Policy.AllRequirements() {
		if req.Scope != policy.ScopeSingleUse {
			continue
		}
		if !trigger.Matches(ev.ToolName, command, req.Triggers) {
			continue
		}
		branch.ClearSingleUse(req.Name, sid)
	}

	return Output{}
}

// skillInvocationName reports the skill name when ev represents a skill
// tool call: the Skill tool's `skill` input or the Task tool's
// `subagent_type`. Any non-empty name counts; no prefix is checked.
func skillInvocationName(ev hookio.Event) (string, bool) {
	if ev.ToolName != "Skill" && ev.ToolName != "Task" {
		return "", false
	}
	if ev.ToolInput == nil {
		return "", false
	}
	if v, ok := ev.ToolInput["skill"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	if v, ok := ev.ToolInput["subagent_type"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// handleExitPlanMode computes the unsatisfied set and returns an advisory
// status message injected into the assistant's next turn — never a block
// (spec §4.C11 "ExitPlanMode" row).
func handleExitPlanMode(d Deps, branch *branchstate.Document, sid string) Output {
	var unsatisfied []string
	for _, req := range d.Policy.AllRequirements() {
		if !d.Policy.IsRequirementEnabled(req.Name) {
			continue
		}
		if !branch.IsSatisfied(req.Name, req.Scope, sid) {
			unsatisfied = append(unsatisfied, req.Name)
		}
	}
	if len(unsatisfied) == 0 {
		return Output{}
	}
	text := fmt.Sprintf("Heads up: leaving plan mode with %d unsatisfied requirement(s): %s.",
		len(unsatisfied), strings.Join(unsatisfied, ", "))
	return Output{Kind: Context, Text: text, HookEventName: "PostToolUse"}
}

// ---- Stop (spec §4.C11 Stop row, S6) ---------------------------------------

func handleStop(d Deps, ev hookio.Event) Output {
	if ev.StopHookActive {
		// CRITICAL: never block a second time, or the host loops forever
		// (spec §9 "Stop-loop prevention").
		return Output{}
	}
	if !requirementsEnabled(d) {
		return Output{}
	}
	if !d.Policy.Stop.VerifyRequirements {
		return Output{}
	}

	sid := d.SessionID
	branch := branchstate.Load(d.CommonDir, d.ProjectDir, d.Branch)
	verifyScopes := map[policy.Scope]bool{}
	for _, s := range d.Policy.Stop.VerifyScopes {
		verifyScopes[s] = true
	}

	var unsatisfied []*policy.Requirement
	for _, req := range d.Policy.AllRequirements() {
		if !d.Policy.IsRequirementEnabled(req.Name) {
			continue
		}
		if !verifyScopes[req.Scope] {
			continue
		}
		if !branch.WasTriggered(req.Name, sid) {
			continue
		}
		if !branch.IsSatisfied(req.Name, req.Scope, sid) {
			unsatisfied = append(unsatisfied, req)
		}
	}

	if len(unsatisfied) == 0 {
		return Output{}
	}
	return Output{Kind: StopBlock, Text: buildStopBlockMessage(unsatisfied, sid), HookEventName: "Stop"}
}

// buildStopBlockMessage renders the resolution-guided table (grouped by
// auto_resolve_skill, then bare `req satisfy`), matching
// original_source/hooks/handle-stop.py's table shape exactly.
func buildStopBlockMessage(unsatisfied []*policy.Requirement, sid string) string {
	var b strings.Builder
	b.WriteString("## Cannot Complete: Unsatisfied Requirements\n\n")

	skillGroups := map[string][]string{}
	var skillOrder []string
	var noSkill []string
	var names []string

	for _, req := range unsatisfied {
		names = append(names, req.Name)
		if req.AutoResolveSkill != "" {
			if _, ok := skillGroups[req.AutoResolveSkill]; !ok {
				skillOrder = append(skillOrder, req.AutoResolveSkill)
			}
			skillGroups[req.AutoResolveSkill] = append(skillGroups[req.AutoResolveSkill], req.Name)
		} else {
			noSkill = append(noSkill, req.Name)
		}
	}

	b.WriteString("| Requirement | Execute |\n")
	b.WriteString("|-------------|---------|\n")
	for _, skill := range skillOrder {
		for _, name := range skillGroups[skill] {
			fmt.Fprintf(&b, "| %s | `/%s` |\n", name, skill)
		}
	}
	for _, name := range noSkill {
		fmt.Fprintf(&b, "| %s | `req satisfy %s` |\n", name, name)
	}

	b.WriteString("\nRun the resolution skills above to satisfy requirements.\n\n---\n")
	fmt.Fprintf(&b, "Fallback: `req satisfy %s --session %s`\n", strings.Join(names, " "), sid)
	return b.String()
}

// ---- SessionStart (spec §4.C11 SessionStart row) ---------------------------

func handleSessionStart(d Deps, ev hookio.Event) Output {
	if !requirementsEnabled(d) {
		return Output{}
	}
	sid := d.SessionID

	liveBranches := map[string]bool{}
	if locals, err := gitutil.LocalBranches(d.ProjectDir); err == nil {
		for _, b := range locals {
			liveBranches[branchstate.SanitizeBranch(b)] = true
		}
	}
	branchstate.PruneStaleBranches(d.CommonDir, liveBranches)
	registry.CleanupStale()
	registry.Update(sid, d.PID, d.PPID, d.ProjectDir, d.Branch)
	metrics.RecordEvent(d.CommonDir, sid, "SessionStart")

	if !d.InjectContext || d.BuildBriefing == nil {
		return Output{}
	}
	return Output{Kind: Context, Text: d.BuildBriefing(), HookEventName: "SessionStart"}
}

// ---- SessionEnd (spec §4.C11 SessionEnd row: "always", "cannot block") ----

func handleSessionEnd(d Deps, ev hookio.Event) Output {
	sid := d.SessionID
	registry.Remove(sid)

	if d.ClearSessionScopedOnEnd && d.CommonDir != "" && d.Branch != "" {
		branch := branchstate.Load(d.CommonDir, d.ProjectDir, d.Branch)
		branch.ClearSessionScoped(sid)
	}
	return Output{}
}

// ---- UserPromptSubmit (spec §4.C11 PromptSubmit row) -----------------------

var editCommitKeywords = []string{"commit", "edit", "write", "refactor", "implement", "fix", "change", "update", "modify"}

func handlePromptSubmit(d Deps, ev hookio.Event) Output {
	if !requirementsEnabled(d) {
		return Output{}
	}
	if !promptMatchesKeywords(ev.Prompt) {
		return Output{}
	}

	sid := d.SessionID
	branch := branchstate.Load(d.CommonDir, d.ProjectDir, d.Branch)

	var unsatisfied []string
	for _, req := range d.Policy.AllRequirements() {
		if !d.Policy.IsRequirementEnabled(req.Name) {
			continue
		}
		if !branch.IsSatisfied(req.Name, req.Scope, sid) {
			unsatisfied = append(unsatisfied, req.Name)
		}
	}
	if len(unsatisfied) == 0 {
		return Output{}
	}
	text := fmt.Sprintf("Reminder: %d requirement(s) still unsatisfied: %s.", len(unsatisfied), strings.Join(unsatisfied, ", "))
	return Output{Kind: Context, Text: text, HookEventName: "UserPromptSubmit"}
}

func promptMatchesKeywords(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range editCommitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ---- PreCompact (spec §4.C11 PreCompact row) -------------------------------

func handlePreCompact(d Deps, ev hookio.Event) Output {
	if !requirementsEnabled(d) {
		return Output{}
	}
	sid := d.SessionID
	metrics.RecordCompaction(d.CommonDir, sid)
	return Output{}
}

// ---- PermissionRequest (spec §4.C11, §4.C15) -------------------------------

func handlePermissionRequest(d Deps, ev hookio.Event) Output {
	if !requirementsEnabled(d) {
		return Output{}
	}
	if !d.Policy.AutoDenyDangerous {
		return Output{}
	}
	if ev.ToolName != "Bash" {
		return Output{}
	}
	command := ev.ToolInputCommand()
	if command == "" {
		return Output{}
	}

	for _, dc := range dangerousCommands {
		if dc.match(command) {
			log.Warn("auto-denied dangerous command", "reason", dc.reason, "command_preview", preview(command, 100))
			sid := d.SessionID
			metrics.RecordTool(d.CommonDir, sid, "PermissionDenied")
			reason := fmt.Sprintf(
				"**Blocked by requirements framework**: %s\n\nCommand: `%s`\n\n"+
					"If you need to run this command, disable the safety check: "+
					"`req config set hooks.permission_request.auto_deny_dangerous false`",
				dc.reason, preview(command, 80))
			return Output{Kind: PermissionDeny, Text: reason, HookEventName: "PermissionRequest"}
		}
	}
	return Output{}
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ---- SubagentStart (spec §4.C11 SubagentStart row) -------------------------

func handleSubagentStart(d Deps, ev hookio.Event) Output {
	if !requirementsEnabled(d) {
		return Output{}
	}
	sid := d.SessionID
	metrics.RecordTool(d.CommonDir, sid, "SubagentStart:"+ev.AgentType)

	agentType := strings.TrimPrefix(ev.AgentType, "requirements-framework:")
	if !reviewAgentAllowlist[agentType] {
		return Output{}
	}

	branch := branchstate.Load(d.CommonDir, d.ProjectDir, d.Branch)
	var unsatisfied []string
	for _, req := range d.Policy.AllRequirements() {
		if !d.Policy.IsRequirementEnabled(req.Name) {
			continue
		}
		if !branch.IsSatisfied(req.Name, req.Scope, sid) {
			unsatisfied = append(unsatisfied, req.Name)
		}
	}

	var b strings.Builder
	b.WriteString("## Requirements Framework Context\n\n")
	fmt.Fprintf(&b, "**Branch**: `%s` | **Project**: `%s`\n", d.Branch, d.ProjectDir)
	if len(unsatisfied) > 0 {
		fmt.Fprintf(&b, "**Unsatisfied requirements**: %s\n\n", strings.Join(unsatisfied, ", "))
		b.WriteString("Focus your review on issues that relate to these requirements.\n")
	} else {
		b.WriteString("**All requirements satisfied.**\n")
	}
	return Output{Kind: Context, Text: b.String(), HookEventName: "SubagentStart"}
}

// ---- PostToolUseFailure (spec §4.C11 row) ----------------------------------

const failureThreshold = 3

func handlePostToolUseFailure(d Deps, ev hookio.Event) Output {
	if !requirementsEnabled(d) {
		return Output{}
	}
	if ev.IsInterrupt {
		return Output{}
	}
	sid := d.SessionID
	count := metrics.RecordFailure(d.CommonDir, sid, ev.ToolName)

	switch ev.ToolName {
	case "Edit", "Write", "MultiEdit":
		if count >= failureThreshold {
			text := fmt.Sprintf("**Repeated %s failures detected** (%d failures). Consider running `/pre-commit` to identify underlying issues before continuing.", ev.ToolName, count)
			return Output{Kind: Context, Text: text, HookEventName: "PostToolUseFailure"}
		}
	}
	return Output{}
}

// ---- TeammateIdle / TaskCompleted (spec §4.C11 row) ------------------------

func handleTeammateIdle(d Deps, ev hookio.Event) Output {
	if !d.TeamHooksEnabled {
		return Output{}
	}
	sid := d.SessionID
	metrics.RecordTool(d.CommonDir, sid, "team:"+ev.TeammateName+":idle")

	if d.TeamKeepWorkingOnIdle {
		return Output{Kind: Exit2, Text: fmt.Sprintf(
			"Teammate '%s' is idle. Please check if your assigned task is complete. If not, continue working on it.", ev.TeammateName)}
	}
	return Output{}
}

func handleTaskCompleted(d Deps, ev hookio.Event) Output {
	if !d.TeamHooksEnabled {
		return Output{}
	}
	sid := d.SessionID
	metrics.RecordTool(d.CommonDir, sid, "team:"+ev.TeamName+":task_completed:"+ev.TaskID)

	if d.TeamValidateTaskOutput && strings.TrimSpace(ev.TaskSubject) == "" {
		return Output{Kind: Exit2, Text: fmt.Sprintf(
			"Task %s has an empty subject. Please provide a meaningful description of what was completed.", ev.TaskID)}
	}
	return Output{}
}

// ---- dangerous command table (spec §4.C11/§4.C15) --------------------------

func buildDangerousCommands() []dangerousCommand {
	plain := []struct {
		pattern string
		reason  string
	}{
		{`git\s+push\s+.*-f\b`, "Force push (shorthand)"},
		{`git\s+reset\s+--hard\s+origin/(?:main|master)`, "Hard reset to remote main"},
		{`git\s+clean\s+-[dfx]+`, "Git clean (removes untracked files)"},
		{`(?i)DROP\s+(?:TABLE|DATABASE)`, "SQL DROP statement"},
		{`(?i)TRUNCATE\s+TABLE`, "SQL TRUNCATE statement"},
	}

	forcePush := regexp.MustCompile(`git\s+push\s+.*--force\b`)
	rmRoot := regexp.MustCompile(`rm\s+(?:-[rfR]+\s+)?(/\S*)`)
	out := []dangerousCommand{
		// Force push without lease protection: expressed as plain string
		// logic rather than regex, since RE2 has no negative lookahead to
		// exclude --force-with-lease (original_source/hooks/
		// handle-permission-request.py's two separate patterns collapse
		// to one check here).
		{
			match: func(command string) bool {
				return forcePush.MatchString(command) && !strings.Contains(command, "--force-with-lease")
			},
			reason: "Force push without lease protection",
		},
		// Destructive rm against almost any absolute path, excluding /tmp
		// (original_source/hooks/handle-permission-request.py:
		// `rm\s+(-[rfR]+\s+)?/(?!\btmp\b)` — RE2 has no negative
		// lookahead, so the /tmp exclusion is expressed as a plain
		// string check on the captured path instead of in the pattern).
		{
			match: func(command string) bool {
				for _, m := range rmRoot.FindAllStringSubmatch(command, -1) {
					path := m[1]
					if path == "/tmp" || strings.HasPrefix(path, "/tmp/") {
						continue
					}
					return true
				}
				return false
			},
			reason: "Destructive rm on root directory",
		},
	}
	for _, p := range plain {
		re := regexp.MustCompile(p.pattern)
		reason := p.reason
		out = append(out, dangerousCommand{
			match:  func(command string) bool { return re.MatchString(command) },
			reason: reason,
		})
	}
	return out
}
