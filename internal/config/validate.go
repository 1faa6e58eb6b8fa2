package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTasks(); err != nil {
		return err
	}
	if err := c.validateState(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTasks() error {
	if len(c.Tasks) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/vigil/config.toml"
		}
		return fmt.Errorf("tasks: at least one [[tasks]] entry is required. Edit %s (create with 'vigil config init')", defaultPath)
	}

	seen := make(map[string]int, len(c.Tasks))
	for i, task := range c.Tasks {
		prefix := fmt.Sprintf("tasks[%d]", i)
		if task.URL == "" {
			return fmt.Errorf("%s.url must be set", prefix)
		}
		parsed, err := url.Parse(task.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s.url %q is not an absolute URL", prefix, task.URL)
		}
		if task.Transform == "" {
			return fmt.Errorf("%s.transform must be set", prefix)
		}
		if task.Action == "" {
			return fmt.Errorf("%s.action must be set", prefix)
		}
		if task.CheckEvery < 0 {
			return fmt.Errorf("%s.check_every must not be negative", prefix)
		}
		if prev, dup := seen[task.URL]; dup {
			return fmt.Errorf("%s.url duplicates tasks[%d] (%s); task URLs identify tasks and must be unique", prefix, prev, task.URL)
		}
		seen[task.URL] = i
	}
	return nil
}

func (c *Config) validateState() error {
	switch c.State.OnCorrupt {
	case "rebaseline", "fail":
	default:
		return fmt.Errorf("state.on_corrupt must be \"rebaseline\" or \"fail\", got %q", c.State.OnCorrupt)
	}
	if strings.TrimSpace(c.State.Path) == "" {
		return errors.New("state.path must be set")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if !c.History.Enabled {
		return nil
	}
	if strings.TrimSpace(c.History.Path) == "" {
		return errors.New("history.path must be set when history.enabled is true")
	}
	if c.History.KeepRuns <= 0 {
		return errors.New("history.keep_runs must be positive")
	}
	return nil
}

func (c *Config) validateTimings() error {
	if err := ensurePositiveMap(map[string]int{
		"check_every":            c.CheckEvery,
		"http.timeout":           c.HTTP.Timeout,
		"exec.transform_timeout": c.Exec.TransformTimeout,
		"exec.action_timeout":    c.Exec.ActionTimeout,
		"daemon.shutdown_grace":  c.Daemon.ShutdownGrace,
	}); err != nil {
		return err
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("http.max_body_bytes must be positive")
	}
	if strings.TrimSpace(c.Exec.Shell) == "" {
		return errors.New("exec.shell must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout":  c.Notifications.RequestTimeout,
		"notifications.failure_burst":    c.Notifications.FailureBurst,
		"notifications.failure_per_hour": c.Notifications.FailurePerHour,
	}); err != nil {
		return err
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive (seconds)", key)
		}
	}
	return nil
}
