// Package branchstate is the per-branch satisfaction store (spec §3, §4.C2).
//
// A document lives at <git-common-dir>/requirements/<sanitized-branch>.json,
// shared across worktrees because it's keyed off the common git dir rather
// than a per-worktree .git. Scope precedence, legacy session-key migration,
// and the approval/satisfaction distinction all follow spec §4.C2 exactly;
// the "triggered this session" tracking is this repo's resolution of
// spec §9 Open Question 1 (see DESIGN.md).
//
// Grounded on the teacher's hooks/lib/session/state.go (Load/Save struct
// wrapper shape) and original_source/hooks/lib/requirements.py +
// state_storage.py (the exact field names and precedence rules).
package branchstate

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"requirements/internal/atomicstore"
	"requirements/internal/logging"
	"requirements/internal/policy"
	"requirements/internal/sessionid"
)

var log = logging.For("branchstate")

// SchemaVersion is written to every document's "version" field.
const SchemaVersion = 1

// SessionFact is one session's satisfaction record (spec §3).
type SessionFact struct {
	Satisfied   bool           `json:"satisfied"`
	SatisfiedAt int64          `json:"satisfied_at,omitempty"`
	SatisfiedBy string         `json:"satisfied_by,omitempty"`
	ExpiresAt   *int64         `json:"expires_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	// TriggeredAt resolves spec §9 Open Question 1: whether a requirement
	// was activated at least once this session, independent of whether it
	// was ever satisfied. Stamped by the router on the first matching
	// PreTool event; read by the Stop strategy (spec §4.C11 Stop row, S6).
	TriggeredAt *int64 `json:"triggered_at,omitempty"`
}

// RequirementState is one requirement's record within a branch document.
type RequirementState struct {
	Scope       string                  `json:"scope"`
	Satisfied   bool                    `json:"satisfied,omitempty"`
	SatisfiedAt int64                   `json:"satisfied_at,omitempty"`
	SatisfiedBy string                  `json:"satisfied_by,omitempty"`
	ExpiresAt   *int64                  `json:"expires_at,omitempty"`
	Metadata    map[string]any          `json:"metadata,omitempty"`
	Sessions    map[string]*SessionFact `json:"sessions,omitempty"`
}

// Document is the full per-branch state file (spec §3).
type Document struct {
	Version      int                           `json:"version"`
	Branch       string                        `json:"branch"`
	Project      string                        `json:"project"`
	CreatedAt    int64                         `json:"created_at"`
	UpdatedAt    int64                         `json:"updated_at"`
	Requirements map[string]*RequirementState  `json:"requirements"`

	path string
}

// sanitize maps a branch name to a safe filename component (spec §6: "/" and
// "\" become "-", and only [A-Za-z0-9_-] survive).
var sanitizeDrop = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func sanitize(branch string) string {
	s := branch
	s = regexp.MustCompile(`[/\\]`).ReplaceAllString(s, "-")
	s = sanitizeDrop.ReplaceAllString(s, "")
	if s == "" {
		s = "unknown"
	}
	return s
}

// Path returns the branch document's path under commonDir.
func Path(commonDir, branch string) string {
	return filepath.Join(commonDir, "requirements", sanitize(branch)+".json")
}

// SanitizeBranch exposes the filename-sanitization rule (spec §6) so
// callers building a liveBranches set for PruneStaleBranches key it the
// same lossy way the state files themselves are named.
func SanitizeBranch(branch string) string { return sanitize(branch) }

// Load reads (or lazily default-constructs) the branch document, migrating
// any legacy long-form session keys to their canonical 8-char form. The
// document is only re-persisted if migration actually changed a key (spec
// §3 invariant, §8 property 7: migration is idempotent).
func Load(commonDir, project, branch string) *Document {
	path := Path(commonDir, branch)
	doc := &Document{Requirements: map[string]*RequirementState{}}
	atomicstore.Read(path, doc)
	doc.path = path

	if doc.Requirements == nil {
		doc.Requirements = map[string]*RequirementState{}
	}
	if doc.Version == 0 {
		doc.Version = SchemaVersion
	}
	if doc.Branch == "" {
		doc.Branch = branch
	}
	if doc.Project == "" {
		doc.Project = project
	}

	if migrateSessionKeys(doc) {
		doc.save()
	}
	return doc
}

// migrateSessionKeys rewrites any non-canonical session key to its 8-char
// form, keeping the record with the greater satisfied_at on collision
// (spec §3, §4.C2 "Tie-breaks"; ties keep the already-canonical record's
// entry — spec §9 Open Question 2).
func migrateSessionKeys(doc *Document) bool {
	changed := false
	for _, rs := range doc.Requirements {
		if len(rs.Sessions) == 0 {
			continue
		}
		canon := map[string]*SessionFact{}
		canonWasLegacy := map[string]bool{}
		for key, fact := range rs.Sessions {
			ckey := sessionid.Canonicalize(key)
			existing, ok := canon[ckey]
			legacy := !sessionid.IsCanonical(key)
			if ok {
				if fact.SatisfiedAt > existing.SatisfiedAt {
					canon[ckey] = fact
					canonWasLegacy[ckey] = legacy
				} else if fact.SatisfiedAt == existing.SatisfiedAt && !legacy {
					// exact tie: keep the canonical-keyed record (OQ2).
					canon[ckey] = fact
					canonWasLegacy[ckey] = false
				}
				changed = true
				continue
			}
			canon[ckey] = fact
			canonWasLegacy[ckey] = legacy
			if legacy {
				changed = true
			}
		}
		if changed {
			rs.Sessions = canon
		}
	}
	return changed
}

func (d *Document) save() {
	d.UpdatedAt = time.Now().Unix()
	if d.CreatedAt == 0 {
		d.CreatedAt = d.UpdatedAt
	}
	atomicstore.Write(d.path, d)
}

func now() int64 { return time.Now().Unix() }

func unexpired(expiresAt *int64) bool {
	return expiresAt == nil || *expiresAt > now()
}

// IsSatisfied resolves satisfaction for name under scope, for the given
// session, following spec §4.C2's precedence:
//
//  1. a branch-level override (top-level satisfied=true, unexpired) always
//     wins, even for session/single_use callers;
//  2. otherwise scope-specific rules apply.
func (d *Document) IsSatisfied(name string, scope policy.Scope, sessionID string) bool {
	rs, ok := d.Requirements[name]
	if !ok {
		return false
	}

	if rs.Satisfied && unexpired(rs.ExpiresAt) {
		return true
	}

	switch scope {
	case policy.ScopeSession, policy.ScopeSingleUse:
		sid := sessionid.Canonicalize(sessionID)
		fact, ok := rs.Sessions[sid]
		return ok && fact.Satisfied && unexpired(fact.ExpiresAt)
	case policy.ScopeBranch:
		return false // already checked above; branch-level wasn't satisfied/unexpired
	case policy.ScopePermanent:
		return rs.Satisfied // permanent ignores expiry: only the top-level satisfied flag counts
	default:
		return false
	}
}

// Satisfy records a branch- or permanent-scoped manual satisfaction (spec
// §4.C2: "For branch/permanent, writes the top-level fields"). Session and
// single_use satisfactions go through SatisfyForSession instead, since they
// need a session id to key on. ttl of zero means no expiry; permanent scope
// always ignores ttl (spec §3: "permanent rejects it").
func (d *Document) Satisfy(name string, scope policy.Scope, method string, metadata map[string]any, ttl time.Duration) {
	if scope != policy.ScopeBranch && scope != policy.ScopePermanent {
		log.Error("Satisfy called with a session-keyed scope, ignoring", "requirement", name, "scope", scope)
		return
	}

	rs := d.Requirements[name]
	if rs == nil {
		rs = &RequirementState{}
		d.Requirements[name] = rs
	}
	rs.Scope = string(scope)
	rs.Satisfied = true
	rs.SatisfiedAt = now()
	rs.SatisfiedBy = method
	rs.Metadata = metadata

	if scope == policy.ScopeBranch && ttl > 0 {
		t := now() + int64(ttl.Seconds())
		rs.ExpiresAt = &t
	} else {
		rs.ExpiresAt = nil
	}
	d.save()
}

// SatisfyForSession records a session-scoped or single_use satisfaction for
// sessionID (spec §4.C2 "For session/single_use, writes under
// sessions[current_sid]"). ttl of zero means no expiry; a negative ttl
// records a fact that has already expired.
func (d *Document) SatisfyForSession(name string, scope policy.Scope, sessionID, method string, metadata map[string]any, ttl time.Duration) {
	rs := d.Requirements[name]
	if rs == nil {
		rs = &RequirementState{}
		d.Requirements[name] = rs
	}
	rs.Scope = string(scope)
	if rs.Sessions == nil {
		rs.Sessions = map[string]*SessionFact{}
	}

	var expiresAt *int64
	if ttl != 0 {
		t := now() + int64(ttl.Seconds())
		expiresAt = &t
	}

	sid := sessionid.Canonicalize(sessionID)
	existing := rs.Sessions[sid]
	fact := &SessionFact{
		Satisfied:   true,
		SatisfiedAt: now(),
		SatisfiedBy: method,
		ExpiresAt:   expiresAt,
		Metadata:    metadata,
	}
	if existing != nil {
		fact.TriggeredAt = existing.TriggeredAt
	}
	rs.Sessions[sid] = fact
	d.save()
}

// ApproveForSession writes a TTL-bounded approval fact (spec §4.C2, §9
// "Guard emergency override"): satisfied_by="approval", expires_at
// required.
func (d *Document) ApproveForSession(name, sessionID string, ttl time.Duration, metadata map[string]any) {
	if ttl == 0 {
		ttl = 5 * time.Minute // spec §3 default approval_ttl
	}
	d.SatisfyForSession(name, policy.ScopeSession, sessionID, "approval", metadata, ttl)
}

// IsApproved is stricter than IsSatisfied (spec §4.C2): requires a session
// entry that is satisfied, satisfied_by=="approval", and has an unexpired
// expires_at.
func (d *Document) IsApproved(name, sessionID string) bool {
	rs, ok := d.Requirements[name]
	if !ok {
		return false
	}
	sid := sessionid.Canonicalize(sessionID)
	fact, ok := rs.Sessions[sid]
	if !ok {
		return false
	}
	return fact.Satisfied && fact.SatisfiedBy == "approval" && fact.ExpiresAt != nil && *fact.ExpiresAt > now()
}

// Clear removes a requirement's record entirely.
func (d *Document) Clear(name string) {
	delete(d.Requirements, name)
	d.save()
}

// ClearAll wipes every requirement's record.
func (d *Document) ClearAll() {
	d.Requirements = map[string]*RequirementState{}
	d.save()
}

// ClearSingleUse removes only the current session's entry, and only when
// the requirement's last-seen scope is single_use (spec §4.C2) — this is
// the PostTool mechanism that re-arms a per-commit review after a
// successful commit (spec S2).
func (d *Document) ClearSingleUse(name, sessionID string) {
	rs, ok := d.Requirements[name]
	if !ok || rs.Scope != string(policy.ScopeSingleUse) {
		return
	}
	sid := sessionid.Canonicalize(sessionID)
	if rs.Sessions == nil {
		return
	}
	if _, ok := rs.Sessions[sid]; !ok {
		return
	}
	delete(rs.Sessions, sid)
	d.save()
}

// MarkTriggered records that name was activated for sessionID at least once
// this session (spec §9 Open Question 1). A no-op write if already marked.
func (d *Document) MarkTriggered(name, sessionID string) {
	rs := d.Requirements[name]
	if rs == nil {
		rs = &RequirementState{}
		d.Requirements[name] = rs
	}
	if rs.Sessions == nil {
		rs.Sessions = map[string]*SessionFact{}
	}
	sid := sessionid.Canonicalize(sessionID)
	fact, ok := rs.Sessions[sid]
	if !ok {
		fact = &SessionFact{}
		rs.Sessions[sid] = fact
	}
	if fact.TriggeredAt != nil {
		return
	}
	t := now()
	fact.TriggeredAt = &t
	d.save()
}

// WasTriggered reports whether name was activated for sessionID this
// session (spec §9 Open Question 1, used by the Stop strategy).
func (d *Document) WasTriggered(name, sessionID string) bool {
	rs, ok := d.Requirements[name]
	if !ok {
		return false
	}
	sid := sessionid.Canonicalize(sessionID)
	fact, ok := rs.Sessions[sid]
	return ok && fact.TriggeredAt != nil
}

// ClearSessionScoped removes every session-scoped (non single_use, non
// branch/permanent) fact for sessionID across all requirements — used by
// SessionEnd when configured to clear session-scoped facts (spec §4.C11
// SessionEnd row).
func (d *Document) ClearSessionScoped(sessionID string) {
	sid := sessionid.Canonicalize(sessionID)
	changed := false
	for _, rs := range d.Requirements {
		if rs.Scope != string(policy.ScopeSession) {
			continue
		}
		if _, ok := rs.Sessions[sid]; ok {
			delete(rs.Sessions, sid)
			changed = true
		}
	}
	if changed {
		d.save()
	}
}

// PruneStaleBranches removes every branch document under commonDir whose
// branch name is not in liveBranches (spec §4.C2 prune_stale_branches).
func PruneStaleBranches(commonDir string, liveBranches map[string]bool) (pruned []string) {
	dir := filepath.Join(commonDir, "requirements")
	entries, err := readDirJSON(dir)
	if err != nil {
		log.Warn("prune: cannot list state directory", "dir", dir, "error", err)
		return nil
	}
	for _, name := range entries {
		branchGuess := stripJSONSuffix(name)
		if liveBranches[branchGuess] {
			continue
		}
		path := filepath.Join(dir, name)
		if removeFile(path) {
			pruned = append(pruned, branchGuess)
		}
	}
	return pruned
}

func readDirJSON(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func stripJSONSuffix(name string) string {
	return strings.TrimSuffix(name, ".json")
}

func removeFile(path string) bool {
	if err := os.Remove(path); err != nil {
		log.Warn("prune: failed to remove stale branch state", "path", path, "error", err)
		return false
	}
	return true
}
