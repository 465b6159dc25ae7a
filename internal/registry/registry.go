// Package registry is the machine-wide live-session catalog (spec §3,
// §4.C3), stored at $HOME/.claude/sessions.json.
//
// Grounded on original_source/hooks/lib/session.py: is_process_alive's
// os.kill(pid, 0) zero-signal liveness probe, the registry's ppid-keyed-not-
// pid-keyed field shape ("ppid: Claude session, not pid: hook subprocess"),
// and the self-pruning-on-write discipline (spec §5 "the stale-entry sweep
// runs inside the exclusive section during every write"). The teacher repo
// has no process-liveness-probing file of its own — its
// hooks/lib/session/processes.go is dev-server port monitoring via lsof, an
// unrelated concern — so this package's liveness probe is grounded on
// original_source alone, not on the teacher.
package registry

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"requirements/internal/atomicstore"
	"requirements/internal/sessionid"
)

// Entry is one live session's registry record (spec §3).
type Entry struct {
	PID        int    `json:"pid"`
	PPID       int    `json:"ppid"`
	ProjectDir string `json:"project_dir"`
	Branch     string `json:"branch"`
	StartedAt  int64  `json:"started_at"`
	LastActive int64  `json:"last_active"`
}

type document struct {
	Sessions map[string]*Entry `json:"sessions"`
}

// Path returns the registry's path, honoring $HOME.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".claude", "sessions.json")
	}
	return filepath.Join(home, ".claude", "sessions.json")
}

func load() *document {
	doc := &document{Sessions: map[string]*Entry{}}
	atomicstore.Read(Path(), doc)
	if doc.Sessions == nil {
		doc.Sessions = map[string]*Entry{}
	}
	return doc
}

func (d *document) save() {
	pruneDead(d)
	atomicstore.Write(Path(), d)
}

// alive reports whether ppid corresponds to a live process, via a
// zero-signal send (spec §4.C3 "Liveness is probed by a zero-signal send to
// the process").
func alive(ppid int) bool {
	if ppid <= 0 {
		return false
	}
	err := syscall.Kill(ppid, 0)
	return err == nil
}

func pruneDead(d *document) {
	for sid, e := range d.Sessions {
		if !alive(e.PPID) {
			delete(d.Sessions, sid)
		}
	}
}

// Update stamps sid's last_active, creating or refreshing its entry (spec
// §4.C3). ppid is the caller's parent process id, used for liveness; pid is
// the ephemeral hook process id, recorded for diagnostics only (spec §3:
// "ppid is authoritative for liveness; the hook process itself (pid) is
// ephemeral").
func Update(sid string, pid, ppid int, projectDir, branch string) {
	sid = sessionid.Canonicalize(sid)
	d := load()

	e, ok := d.Sessions[sid]
	if !ok {
		e = &Entry{StartedAt: time.Now().Unix()}
		d.Sessions[sid] = e
	}
	e.PID = pid
	e.PPID = ppid
	e.ProjectDir = projectDir
	e.Branch = branch

	// last_active is monotonic per session (spec §3 invariant).
	nowTS := time.Now().Unix()
	if nowTS > e.LastActive {
		e.LastActive = nowTS
	}
	d.save()
}

// Remove erases sid's entry (SessionEnd, spec §4.C11).
func Remove(sid string) {
	sid = sessionid.Canonicalize(sid)
	d := load()
	delete(d.Sessions, sid)
	d.save()
}

// List returns live entries, optionally filtered by project and/or branch.
// Dead entries (ppid no longer alive) are never returned, matching the
// teacher's "registry is self-cleaning" design.
func List(project, branch string) map[string]Entry {
	d := load()
	out := map[string]Entry{}
	for sid, e := range d.Sessions {
		if !alive(e.PPID) {
			continue
		}
		if project != "" && e.ProjectDir != project {
			continue
		}
		if branch != "" && e.Branch != branch {
			continue
		}
		out[sid] = *e
	}
	return out
}

// OtherLiveSessions returns every session on project other than
// excludeSID — the single_session guard's exact query (spec §4.C9).
func OtherLiveSessions(project, excludeSID string) map[string]Entry {
	excludeSID = sessionid.Canonicalize(excludeSID)
	all := List(project, "")
	delete(all, excludeSID)
	return all
}

// CleanupStale scans and removes every entry whose ppid is no longer alive
// (spec §4.C3 cleanup_stale, called by SessionStart per spec §4.C11).
func CleanupStale() {
	d := load()
	d.save() // save() always prunes dead entries first
}
