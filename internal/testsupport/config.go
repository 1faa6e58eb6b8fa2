package testsupport

import (
	"path/filepath"
	"testing"

	"vigil/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults one harmless task and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Tasks = []config.Task{{
		URL:       "https://example.com/feed",
		Transform: "cat",
		Action:    "true",
	}}
	cfgVal.State.Path = filepath.Join(base, "state", "state.json")
	cfgVal.History.Path = filepath.Join(base, "history", "history.db")
	cfgVal.Daemon.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTasks replaces the default task set on the test config.
func WithTasks(tasks ...config.Task) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tasks = tasks
	}
}

// WithCheckEvery overrides the global cadence on the test config.
func WithCheckEvery(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.CheckEvery = seconds
	}
}

// WithHistoryDisabled turns off the run journal on the test config.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Daemon.LogDir)
}
