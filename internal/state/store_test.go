package state_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vigil/internal/state"
)

func openStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestOpenMissingFileYieldsEmptyStore(t *testing.T) {
	store := openStore(t)
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", store.Len())
	}
	if _, ok := store.Get("https://example.com"); ok {
		t.Fatal("expected no value for unknown task")
	}
}

func TestSetPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := state.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.Set("https://example.com/a", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("https://example.com/b", "v2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := state.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if value, ok := reopened.Get("https://example.com/a"); !ok || value != "v1" {
		t.Fatalf("expected v1, got %q ok=%v", value, ok)
	}
	if value, ok := reopened.Get("https://example.com/b"); !ok || value != "v2" {
		t.Fatalf("expected v2, got %q ok=%v", value, ok)
	}
}

func TestStateFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := state.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Set("https://example.com/feed", "1.2.3"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var doc struct {
		Results map[string]string `json:"results"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("state file is not valid JSON: %v", err)
	}
	if doc.Results["https://example.com/feed"] != "1.2.3" {
		t.Fatalf("unexpected document: %s", raw)
	}
	if !strings.HasSuffix(string(raw), "\n") {
		t.Fatal("expected trailing newline for a human-readable file")
	}
}

func TestOpenCorruptFileReturnsUsableStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	store, err := state.Open(path)
	if err == nil {
		t.Fatal("expected corrupt state error")
	}
	if !errors.Is(err, state.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if store == nil {
		t.Fatal("expected usable store despite corruption")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty baseline, got %d entries", store.Len())
	}

	// The store must still accept writes so the daemon can rebaseline.
	if err := store.Set("https://example.com", "fresh"); err != nil {
		t.Fatalf("Set after corruption: %v", err)
	}
}

func TestBackupCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	backup, err := state.BackupCorrupt(path)
	if err != nil {
		t.Fatalf("BackupCorrupt: %v", err)
	}
	if backup != path+".corrupt" {
		t.Fatalf("unexpected backup path %q", backup)
	}
	content, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(content) != "{broken" {
		t.Fatalf("backup content mismatch: %q", content)
	}

	missing, err := state.BackupCorrupt(filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("BackupCorrupt missing file: %v", err)
	}
	if missing != "" {
		t.Fatalf("expected empty backup path for missing file, got %q", missing)
	}
}

func TestOpenWithPolicyRebaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	store, backup, err := state.OpenWithPolicy(path, "rebaseline")
	if err != nil {
		t.Fatalf("OpenWithPolicy: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty baseline, got %d entries", store.Len())
	}
	if backup != path+".corrupt" {
		t.Fatalf("unexpected backup path %q", backup)
	}
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
}

func TestOpenWithPolicyFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, _, err := state.OpenWithPolicy(path, "fail"); !errors.Is(err, state.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt under fail policy, got %v", err)
	}
}

func TestOpenWithPolicyHealthyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	seed, err := state.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := seed.Set("https://example.com", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	store, backup, err := state.OpenWithPolicy(path, "fail")
	if err != nil {
		t.Fatalf("OpenWithPolicy on healthy file: %v", err)
	}
	if backup != "" {
		t.Fatalf("unexpected backup %q for healthy file", backup)
	}
	if value, ok := store.Get("https://example.com"); !ok || value != "v1" {
		t.Fatalf("expected v1, got %q ok=%v", value, ok)
	}
}

func TestClearAndClearAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := state.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, id := range []string{"https://a.example", "https://b.example"} {
		if err := store.Set(id, "value"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if err := store.Clear("https://a.example"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := store.Get("https://a.example"); ok {
		t.Fatal("expected cleared task to be absent")
	}
	if _, ok := store.Get("https://b.example"); !ok {
		t.Fatal("expected other task untouched")
	}

	if err := store.Clear("https://never.example"); err != nil {
		t.Fatalf("Clear of unknown task should be a no-op: %v", err)
	}

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	reopened, err := state.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Len() != 0 {
		t.Fatalf("expected empty store after ClearAll, got %d", reopened.Len())
	}
}

func TestSetFailureRollsBackMemory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store, err := state.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Set("https://example.com", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Make the directory read-only so the atomic replace cannot create its
	// temp file.
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if err := store.Set("https://example.com", "v2"); err == nil {
		t.Fatal("expected write failure in read-only directory")
	}
	if value, _ := store.Get("https://example.com"); value != "v1" {
		t.Fatalf("expected rollback to v1, got %q", value)
	}
}

func TestInterruptedWriteLeavesPriorValueReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store, err := state.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Set("https://example.com", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A crash between temp-file write and rename leaves a stray temp file
	// next to the store. The store itself must still read as the fully
	// written prior value.
	stray := filepath.Join(dir, "state.json.tmp-crash")
	if err := os.WriteFile(stray, []byte(`{"results":{"https://example.com":"v`), 0o644); err != nil {
		t.Fatalf("write stray temp: %v", err)
	}

	reopened, err := state.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if value, ok := reopened.Get("https://example.com"); !ok || value != "v1" {
		t.Fatalf("expected prior value v1, got %q ok=%v", value, ok)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store := openStore(t)
	if err := store.Set("https://example.com", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	snapshot := store.Snapshot()
	snapshot["https://example.com"] = "mutated"

	if value, _ := store.Get("https://example.com"); value != "v1" {
		t.Fatalf("snapshot mutation leaked into store: %q", value)
	}
}
