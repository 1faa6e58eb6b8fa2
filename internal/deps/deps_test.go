package deps

import (
	"os"
	"path/filepath"
	"testing"

	"vigil/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unset command to be reported, got %#v", results[2])
	}
}

func TestRequiredUsesConfiguredShell(t *testing.T) {
	cfg := config.Default()
	cfg.Exec.Shell = "bash"

	reqs := Required(&cfg)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}
	if reqs[0].Command != "bash" {
		t.Fatalf("expected configured shell, got %q", reqs[0].Command)
	}

	if fallback := Required(nil); fallback[0].Command != "sh" {
		t.Fatalf("expected sh fallback, got %q", fallback[0].Command)
	}
}
