package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Task describes one watched resource.
type Task struct {
	// URL is the resource to fetch. It doubles as the task identifier and
	// must be unique across the task set.
	URL string `toml:"url"`
	// Transform is a shell command that receives the fetched bytes on stdin
	// and prints the canonical value on stdout.
	Transform string `toml:"transform"`
	// Action is a shell command run when the canonical value changes. The
	// new value is exported as $VIGIL_VALUE.
	Action string `toml:"action"`
	// CheckEvery is the per-task cadence in seconds. Zero falls back to the
	// top-level check_every.
	CheckEvery int `toml:"check_every"`
}

// State configures the durable last-value store.
type State struct {
	Path string `toml:"path"`
	// OnCorrupt selects the startup policy when the state file cannot be
	// parsed: "rebaseline" continues with an empty baseline, "fail" refuses
	// to start.
	OnCorrupt string `toml:"on_corrupt"`
}

// History configures the SQLite run journal.
type History struct {
	Enabled  bool   `toml:"enabled"`
	Path     string `toml:"path"`
	KeepRuns int    `toml:"keep_runs"`
}

// HTTP configures the fetcher.
type HTTP struct {
	Timeout      int    `toml:"timeout"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
	UserAgent    string `toml:"user_agent"`
}

// Exec configures how transformation and action commands are spawned.
type Exec struct {
	Shell            string `toml:"shell"`
	TransformTimeout int    `toml:"transform_timeout"`
	ActionTimeout    int    `toml:"action_timeout"`
}

// Daemon configures process-level behavior.
type Daemon struct {
	ShutdownGrace int    `toml:"shutdown_grace"`
	LogDir        string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnChange       bool   `toml:"on_change"`
	OnFailure      bool   `toml:"on_failure"`
	FailureBurst   int    `toml:"failure_burst"`
	FailurePerHour int    `toml:"failure_per_hour"`
}

// Config encapsulates all configuration values for vigil.
//
// Configuration sections by subsystem:
//   - CheckEvery/Tasks: the watched task set and its default cadence
//   - State: durable last-value store path and corruption policy
//   - History: SQLite run journal
//   - HTTP: fetcher timeout, body cap, user agent
//   - Exec: shell selection and command timeouts
//   - Daemon: shutdown grace and log directory
//   - Logging: log format, level, and retention
//   - Notifications: ntfy push notification settings
type Config struct {
	CheckEvery    int           `toml:"check_every"`
	Tasks         []Task        `toml:"tasks"`
	State         State         `toml:"state"`
	History       History       `toml:"history"`
	HTTP          HTTP          `toml:"http"`
	Exec          Exec          `toml:"exec"`
	Daemon        Daemon        `toml:"daemon"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/vigil/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vigil.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.State.Path),
		c.Daemon.LogDir,
	}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Sample returns the embedded sample configuration text.
func Sample() string {
	return sampleConfig
}

// ExpandPath expands a leading ~ and resolves the value to an absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
