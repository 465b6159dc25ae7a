// Package bootstrap resolves the ambient context every cmd/hook-* binary
// needs before calling internal/router: the project directory, git branch
// and common dir, the merged policy document, and the message provider.
//
// Loading the policy *cascade* (global -> project -> local merge) is
// explicitly out of scope (spec §1); this package owns only the boundary of
// reading the single already-merged policy file a project keeps at
// .claude/requirements.json, the way the teacher's
// system/runtime/lib/config/config.go owns reading its own single TOML file
// rather than a cascade.
package bootstrap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"requirements/internal/branchstate"
	"requirements/internal/briefing"
	_ "requirements/internal/calculators/branchsize" // registers the "branch_size" dynamic calculator
	"requirements/internal/engineconfig"
	"requirements/internal/gitutil"
	"requirements/internal/hookio"
	"requirements/internal/logging"
	"requirements/internal/messages"
	"requirements/internal/policy"
	"requirements/internal/router"
	"requirements/internal/sessionid"
)

var log = logging.For("bootstrap")

// PolicyPath is the project-local merged-policy file (spec §6 persistence
// layout names state/registry/cache paths explicitly but leaves the policy
// source to the reader; this is this repo's concrete choice).
func PolicyPath(projectDir string) string {
	return filepath.Join(projectDir, ".claude", "requirements.json")
}

// MessagesPath is the project-local YAML message cascade file consumed by
// internal/messages.LoadYAMLProvider.
func MessagesPath(projectDir string) string {
	return filepath.Join(projectDir, ".claude", "messages.yaml")
}

// ResolveProjectDir finds the project root: cwd from the event, falling back
// to $CLAUDE_PROJECT_DIR (spec §6 Environment).
func ResolveProjectDir(ev hookio.Event) string {
	if ev.Cwd != "" {
		return ev.Cwd
	}
	return os.Getenv("CLAUDE_PROJECT_DIR")
}

// LoadPolicy reads and parses the project's merged policy document. A
// missing or unreadable file yields a disabled document — every event
// handler treats that as "pass silently" (spec §7 configuration-error row).
func LoadPolicy(projectDir string) *policy.Document {
	if projectDir == "" {
		return &policy.Document{Requirements: map[string]*policy.Requirement{}}
	}
	data, err := os.ReadFile(PolicyPath(projectDir))
	if err != nil {
		log.Debug("no project policy file, treating as disabled", "project", projectDir)
		return &policy.Document{Requirements: map[string]*policy.Requirement{}}
	}
	return policy.Parse(data)
}

// LoadProvider builds the reference message provider (spec §4.C6).
func LoadProvider(projectDir string) messages.Provider {
	return messages.LoadYAMLProvider(MessagesPath(projectDir))
}

// BuildDeps assembles router.Deps for ev, resolving git context with
// internal/gitutil. Any git failure degrades to an empty ProjectDir/Branch,
// which every router handler already treats as "skip" (fail-open).
func BuildDeps(ev hookio.Event) router.Deps {
	cfg := engineconfig.Load()

	projectDir := ResolveProjectDir(ev)
	var branch, commonDir string
	if projectDir != "" {
		if b, err := gitutil.CurrentBranch(projectDir); err == nil {
			branch = b
		}
		if cd, err := gitutil.CommonDir(projectDir); err == nil {
			commonDir = cd
		}
	}

	sid := ev.SessionID
	if forced := os.Getenv("CLAUDE_SESSION_ID"); forced != "" {
		sid = forced
	}

	return router.Deps{
		Policy:     LoadPolicy(projectDir),
		Provider:   LoadProvider(projectDir),
		ProjectDir: projectDir,
		CommonDir:  commonDir,
		Branch:     branch,
		SessionID:  sessionid.Canonicalize(sid),
		PID:        os.Getpid(),
		PPID:       os.Getppid(),
		DedupTTL:   time.Duration(cfg.Cache.DedupTTLSeconds) * time.Second,

		InjectContext:           true,
		ClearSessionScopedOnEnd: false,
		TeamHooksEnabled:        false,
	}
}

// BriefingText renders the SessionStart status briefing for deps at the
// density SessionStart's source field (or an explicit override) selects
// (spec §4.C12). Requirement status is read directly from branchstate rather
// than re-running strategy evaluation: the briefing is informational, not a
// gate, so a plain satisfied/unsatisfied read is enough (spec §1 "writes are
// opportunistic and must never influence decisions" applies by the same
// logic here — the briefing must never itself decide anything).
func BriefingText(d router.Deps, source, explicitDensity string) string {
	if d.Policy == nil || d.ProjectDir == "" || d.Branch == "" {
		return ""
	}
	branch := branchstate.Load(d.CommonDir, d.ProjectDir, d.Branch)

	var statuses []briefing.RequirementStatus
	for _, req := range d.Policy.AllRequirements() {
		if !req.Enabled {
			continue
		}
		satisfied := branch.IsSatisfied(req.Name, req.Scope, d.SessionID)
		resolveHint := fmt.Sprintf("req satisfy %s", req.Name)
		isSkill := false
		if req.AutoResolveSkill != "" {
			resolveHint = req.AutoResolveSkill
			isSkill = true
		}
		var triggers []string
		for _, t := range req.Triggers {
			triggers = append(triggers, t.Tool)
		}
		statuses = append(statuses, briefing.RequirementStatus{
			Name:        req.Name,
			Type:        req.Type,
			Description: req.Description,
			Satisfied:   satisfied,
			Triggers:    triggers,
			ResolveHint: resolveHint,
			IsSkillHint: isSkill,
		})
	}

	density := briefing.SelectDensity(source, explicitDensity)
	return briefing.Build(briefing.Input{
		Branch:    d.Branch,
		SessionID: d.SessionID,
		Statuses:  statuses,
	}, density)
}

// Emit translates a router.Output into the §6 wire envelope and returns the
// process exit code the cmd/hook-* binary should use.
func Emit(w io.Writer, out router.Output) int {
	switch out.Kind {
	case router.PreToolDeny:
		_ = hookio.WritePreToolDeny(w, out.Text)
		return 0
	case router.StopBlock:
		_ = hookio.WriteStopBlock(w, out.Text)
		return 0
	case router.Context:
		_ = hookio.WriteContext(w, out.HookEventName, out.Text)
		return 0
	case router.PermissionDeny:
		_ = hookio.WritePermissionDeny(w, out.Text)
		return 0
	case router.Exit2:
		if out.Text != "" {
			fmt.Fprintln(os.Stderr, out.Text)
		}
		return 2
	default:
		return 0
	}
}
