// Package atomicstore is the locked, atomically-renamed JSON document store
// underneath every other state package (spec §4.C1).
//
// Every failure path — missing file, corrupt JSON, lock failure, disk I/O
// error — returns the caller's empty default on Read and is logged and
// swallowed on Write. There are no retries and no backoff: callers treat
// every operation here as best-effort, per spec §7's I/O-error row.
//
// Grounded on the teacher's non-blocking I/O discipline
// (hooks/lib/session/disk.go, system/runtime/lib/logging/logger.go — "warn
// and continue" on every failure) and the spec's own design notes (§9:
// "prefer OS advisory locks with a short-lived open/lock/read-or-write/close
// envelope; do not hold locks across user code"). Locking uses
// golang.org/x/sys/unix.Flock, the nearest advisory-lock primitive already
// present in the example pack's dependency graph (telnet2-opencode/go-memsh
// requires golang.org/x/sys indirectly); no flock package appears anywhere
// in the pack.
package atomicstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"requirements/internal/logging"
)

var log = logging.For("atomicstore")

// Read loads the JSON document at path into dst (a pointer). If the file is
// missing, corrupt, or cannot be locked, dst is left as the caller passed it
// (its empty default) and Read returns nil — callers always get "empty
// default", never an error they need to special-case.
func Read(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("open for read failed", "path", path, "error", err)
		}
		return nil
	}
	defer f.Close()

	if err := flock(f, unix.LOCK_SH); err != nil {
		log.Warn("shared lock failed, returning empty default", "path", path, "error", err)
		return nil
	}
	defer funlock(f)

	dec := json.NewDecoder(f)
	if err := dec.Decode(dst); err != nil {
		log.Warn("corrupt document, returning empty default", "path", path, "error", err)
	}
	return nil
}

// Write atomically persists doc to path: write-to-tempfile, fsync, rename.
// Every failure is logged and swallowed — Write never returns an error that
// could reach a decision path.
func Write(path string, doc any) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Warn("mkdir failed", "dir", dir, "error", err)
		return
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		log.Warn("tempfile create failed", "dir", dir, "error", err)
		return
	}
	tmpPath := tmp.Name()
	removeTmp := true
	defer func() {
		if removeTmp {
			os.Remove(tmpPath)
		}
	}()

	if err := flock(tmp, unix.LOCK_EX); err != nil {
		log.Warn("exclusive lock failed, writing unlocked", "path", path, "error", err)
	} else {
		defer funlock(tmp)
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		log.Warn("encode failed", "path", path, "error", err)
		tmp.Close()
		return
	}
	if err := tmp.Sync(); err != nil {
		log.Warn("fsync failed", "path", path, "error", err)
	}
	if err := tmp.Close(); err != nil {
		log.Warn("tempfile close failed", "path", path, "error", err)
		return
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		log.Warn("chmod failed", "path", path, "error", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		log.Warn("rename failed", "path", path, "error", err)
		return
	}
	removeTmp = false
}

func flock(f *os.File, how int) error {
	return unix.Flock(int(f.Fd()), how)
}

func funlock(f *os.File) {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
