package calccache

import (
	"testing"
	"time"
)

func isolateTemp(t *testing.T) {
	t.Helper()
	t.Setenv("TMPDIR", t.TempDir())
}

func TestGetMissReturnsFalse(t *testing.T) {
	isolateTemp(t)
	_, ok := Get(Key("proj", "feature/a", "req1"), time.Minute)
	if ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestSetThenGetWithinTTLHits(t *testing.T) {
	isolateTemp(t)
	key := Key("proj", "feature/a", "branch_size")
	Set(key, Result{Value: 42, Summary: "42 lines changed"})

	got, ok := Get(key, time.Minute)
	if !ok {
		t.Fatal("expected hit within ttl")
	}
	if got.Value != 42 || got.Summary != "42 lines changed" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestGetAfterTTLExpiresMisses(t *testing.T) {
	isolateTemp(t)
	key := Key("proj", "feature/a", "branch_size")
	Set(key, Result{Value: 10})

	_, ok := Get(key, -time.Second) // already-expired ttl
	if ok {
		t.Fatal("expected miss once ttl has elapsed")
	}
}

func TestSetOverwrites(t *testing.T) {
	isolateTemp(t)
	key := Key("proj", "feature/a", "branch_size")
	Set(key, Result{Value: 10})
	Set(key, Result{Value: 20})

	got, ok := Get(key, time.Minute)
	if !ok || got.Value != 20 {
		t.Fatalf("expected overwritten value 20, got %+v ok=%v", got, ok)
	}
}

func TestKeyShape(t *testing.T) {
	got := Key("myproj", "feature/a", "branch_size_limit")
	want := "myproj:feature/a:branch_size_limit"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
