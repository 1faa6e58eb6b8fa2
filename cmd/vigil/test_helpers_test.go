package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vigil/internal/config"
	"vigil/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("VIGIL_NTFY_TOPIC", "")

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "vigil", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "check_every = %d\n", cfg.CheckEvery)
	for _, task := range cfg.Tasks {
		fmt.Fprintf(&b, "\n[[tasks]]\nurl = %q\ntransform = %q\naction = %q\n", task.URL, task.Transform, task.Action)
		if task.CheckEvery > 0 {
			fmt.Fprintf(&b, "check_every = %d\n", task.CheckEvery)
		}
	}
	fmt.Fprintf(&b, "\n[state]\npath = %q\non_corrupt = %q\n", cfg.State.Path, cfg.State.OnCorrupt)
	fmt.Fprintf(&b, "\n[history]\nenabled = %t\npath = %q\nkeep_runs = %d\n", cfg.History.Enabled, cfg.History.Path, cfg.History.KeepRuns)
	fmt.Fprintf(&b, "\n[daemon]\nlog_dir = %q\n", cfg.Daemon.LogDir)
	if cfg.Notifications.NtfyTopic != "" {
		fmt.Fprintf(&b, "\n[notifications]\nntfy_topic = %q\n", cfg.Notifications.NtfyTopic)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
