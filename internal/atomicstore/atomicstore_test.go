package atomicstore

import (
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestReadMissingFileReturnsEmptyDefault(t *testing.T) {
	dir := t.TempDir()
	var d doc
	if err := Read(filepath.Join(dir, "missing.json"), &d); err != nil {
		t.Fatalf("Read returned error on missing file: %v", err)
	}
	if d != (doc{}) {
		t.Fatalf("expected zero value, got %+v", d)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	Write(path, &doc{Name: "abc", Count: 7})

	var got doc
	if err := Read(path, &got); err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if got.Name != "abc" || got.Count != 7 {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestReadCorruptFileReturnsEmptyDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o600); err != nil {
		t.Fatal(err)
	}

	d := doc{Name: "preexisting"}
	if err := Read(path, &d); err != nil {
		t.Fatalf("Read returned error on corrupt file: %v", err)
	}
	// Decode leaves partially-set fields alone on error; the contract is
	// "never error", not "guarantee zeroing" — but Name must not have
	// been mutated to a parsed value since decode failed outright.
	if d.Name != "preexisting" {
		t.Fatalf("expected untouched struct on decode failure, got %+v", d)
	}
}

func TestWriteDoesNotLeaveTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	Write(path, &doc{Name: "x"})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "state.json" {
			t.Fatalf("unexpected leftover file: %s", e.Name())
		}
	}
}

func TestWriteCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "sub", "state.json")
	Write(path, &doc{Name: "nested"})

	var got doc
	if err := Read(path, &got); err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if got.Name != "nested" {
		t.Fatalf("expected nested write to succeed, got %+v", got)
	}
}
