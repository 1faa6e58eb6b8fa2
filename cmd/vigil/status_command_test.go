package main

import (
	"os"
	"testing"

	"vigil/internal/testsupport"
)

func TestStatusRendersSections(t *testing.T) {
	env := setupCLITestEnv(t)

	store := testsupport.MustOpenState(t, env.cfg)
	if err := store.Set("https://example.com/feed", "release-v1"); err != nil {
		t.Fatalf("seed baseline: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "not running")
	requireContains(t, out, "Lock file:")

	requireContains(t, out, "== Storage ==")
	requireContains(t, out, "(1 baselines)")
	requireContains(t, out, env.cfg.History.Path)

	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "State directory")
	requireContains(t, out, "[OK]")

	requireContains(t, out, "== Tasks ==")
	requireContains(t, out, "https://example.com/feed")
	requireContains(t, out, "release-v1")
	requireContains(t, out, "5m0s")
}

func TestStatusFlagsCorruptState(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := os.WriteFile(env.cfg.State.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt state: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[WARN]")
	requireContains(t, out, "corrupt; on_corrupt=rebaseline applies on next run")

	// The corrupt file must survive a status invocation untouched.
	data, err := os.ReadFile(env.cfg.State.Path)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if string(data) != "{not json" {
		t.Fatalf("status mutated the state file: %q", data)
	}
}

func TestStatusWithHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.History.Enabled = false
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "disabled")
}
