package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeTasks(); err != nil {
		return err
	}
	if err := c.normalizeState(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	c.normalizeHTTP()
	c.normalizeExec()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizeTasks() error {
	for i := range c.Tasks {
		task := &c.Tasks[i]
		task.URL = strings.TrimSpace(task.URL)
		task.Transform = strings.TrimSpace(task.Transform)
		task.Action = strings.TrimSpace(task.Action)
	}
	return nil
}

func (c *Config) normalizeState() error {
	path, err := ExpandPath(valueOr(c.State.Path, defaultStatePath))
	if err != nil {
		return err
	}
	c.State.Path = path
	c.State.OnCorrupt = strings.ToLower(strings.TrimSpace(c.State.OnCorrupt))
	if c.State.OnCorrupt == "" {
		c.State.OnCorrupt = defaultStateOnCorrupt
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	path, err := ExpandPath(valueOr(c.History.Path, defaultHistoryPath))
	if err != nil {
		return err
	}
	c.History.Path = path
	return nil
}

func (c *Config) normalizeDaemon() error {
	dir, err := ExpandPath(valueOr(c.Daemon.LogDir, defaultLogDir))
	if err != nil {
		return err
	}
	c.Daemon.LogDir = dir
	return nil
}

func (c *Config) normalizeHTTP() {
	c.HTTP.UserAgent = valueOr(c.HTTP.UserAgent, defaultUserAgent)
}

func (c *Config) normalizeExec() {
	c.Exec.Shell = valueOr(c.Exec.Shell, defaultShell)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(valueOr(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(valueOr(c.Logging.Level, defaultLogLevel))
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(os.Getenv("VIGIL_NTFY_TOPIC"))
	}
}

func valueOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
