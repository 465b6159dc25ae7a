package dedup

import (
	"os"
	"testing"
	"time"
)

func isolateTemp(t *testing.T) {
	t.Helper()
	t.Setenv("TMPDIR", t.TempDir())
}

func TestFirstShowIsAlwaysTrue(t *testing.T) {
	isolateTemp(t)
	key := Key("proj", "feature/a", "sid1234", "commit_plan", false)
	if !ShouldShow(key, "full message", 5*time.Second) {
		t.Fatal("expected first call to show the full message")
	}
}

func TestRepeatedIdenticalMessageWithinTTLIsSuppressed(t *testing.T) {
	isolateTemp(t)
	key := Key("proj", "feature/a", "sid1234", "commit_plan", false)
	ttl := 5 * time.Second

	if !ShouldShow(key, "same message", ttl) {
		t.Fatal("expected first call to show")
	}
	if ShouldShow(key, "same message", ttl) {
		t.Fatal("expected second identical call within ttl to be suppressed")
	}
	if ShouldShow(key, "same message", ttl) {
		t.Fatal("expected third identical call within ttl to still be suppressed")
	}
}

func TestDifferentMessageWithinTTLStillShows(t *testing.T) {
	isolateTemp(t)
	key := Key("proj", "feature/a", "sid1234", "commit_plan", false)
	ttl := 5 * time.Second

	if !ShouldShow(key, "message A", ttl) {
		t.Fatal("expected first call to show")
	}
	if !ShouldShow(key, "message B", ttl) {
		t.Fatal("a different fingerprint must show even within ttl")
	}
}

func TestAfterTTLElapsesMessageShowsAgain(t *testing.T) {
	isolateTemp(t)
	key := Key("proj", "feature/a", "sid1234", "commit_plan", false)

	if !ShouldShow(key, "same message", time.Millisecond) {
		t.Fatal("expected first call to show")
	}
	time.Sleep(5 * time.Millisecond)
	if !ShouldShow(key, "same message", time.Millisecond) {
		t.Fatal("expected call after ttl elapsed to show the full message again")
	}
}

func TestSuppressedCallsDoNotExtendTheTTLWindow(t *testing.T) {
	isolateTemp(t)
	key := Key("proj", "feature/a", "sid1234", "commit_plan", false)
	ttl := 20 * time.Millisecond

	if !ShouldShow(key, "same message", ttl) {
		t.Fatal("expected first call to show")
	}
	// Repeated suppressed checks must not reset the fingerprint's
	// timestamp: the ttl window is fixed from the first show, not a
	// sliding window that never expires under sustained polling.
	deadline := time.Now().Add(ttl - 2*time.Millisecond)
	for time.Now().Before(deadline) {
		if ShouldShow(key, "same message", ttl) {
			t.Fatal("expected suppressed call within ttl")
		}
	}
	time.Sleep(5 * time.Millisecond)
	if !ShouldShow(key, "same message", ttl) {
		t.Fatal("expected the message to show again once the original ttl window elapsed, " +
			"even though suppressed calls kept arriving throughout the window")
	}
}

func TestSingleSessionKeyShapeOmitsBranch(t *testing.T) {
	withBranch := Key("proj", "main", "sid1234", "single_session", false)
	single := Key("proj", "main", "sid1234", "single_session", true)
	if withBranch == single {
		t.Fatal("single_session key must differ from the branch-keyed form")
	}
	want := "proj:sid1234:single_session:single_session"
	if single != want {
		t.Fatalf("got %q, want %q", single, want)
	}
}

func TestCorruptCacheFileIsRecreated(t *testing.T) {
	isolateTemp(t)
	// Prime the cache file, then corrupt it directly, then verify
	// ShouldShow recovers instead of erroring or panicking.
	key := Key("proj", "feature/a", "sid1234", "commit_plan", false)
	ShouldShow(key, "msg", time.Minute)

	writeCorrupt(t)

	if !ShouldShow(key, "msg after corruption", time.Minute) {
		t.Fatal("expected a fresh cache to show the message after recovering from corruption")
	}
}

func writeCorrupt(t *testing.T) {
	t.Helper()
	if err := os.WriteFile(Path(), []byte("{ this is not json"), 0o600); err != nil {
		t.Fatal(err)
	}
}
