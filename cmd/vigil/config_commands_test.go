package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	requireContains(t, string(data), "[[tasks]]")
	requireContains(t, string(data), "check_every")

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already-exists error, got %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Tasks: 1")
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsEmptyTaskSet(t *testing.T) {
	env := setupCLITestEnv(t)

	invalidPath := filepath.Join(env.baseDir, "invalid.toml")
	if err := os.WriteFile(invalidPath, []byte("check_every = 300\n"), 0o644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	_, _, err := runCLI(t, []string{"config", "validate"}, invalidPath)
	if err == nil || !strings.Contains(err.Error(), "[[tasks]]") {
		t.Fatalf("expected task validation error, got %v", err)
	}
}

func TestConfigValidateAcceptsSample(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "sample.toml")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err != nil {
		t.Fatalf("config init: %v", err)
	}
	out, _, err := runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "check_every = 300")
	requireContains(t, out, "https://example.com/feed")
	requireContains(t, out, "[state]")
	requireContains(t, out, "[[tasks]]")
}

func TestGlobalFlagOverrides(t *testing.T) {
	env := setupCLITestEnv(t)
	altState := filepath.Join(env.baseDir, "alt-state.json")

	out, _, err := runCLI(t, []string{"config", "show", "--check-every", "900", "--state-file", altState}, env.configPath)
	if err != nil {
		t.Fatalf("config show with overrides: %v", err)
	}
	requireContains(t, out, "check_every = 900")
	requireContains(t, out, altState)
}
