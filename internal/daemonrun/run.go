// Package daemonrun hosts the daemon process bootstrap behind vigil run:
// logging, preflight, stores, and the daemon lifecycle around signal-driven
// shutdown.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"

	"vigil/internal/action"
	"vigil/internal/config"
	"vigil/internal/daemon"
	"vigil/internal/deps"
	"vigil/internal/fetcher"
	"vigil/internal/history"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/preflight"
	"vigil/internal/runner"
	"vigil/internal/state"
	"vigil/internal/transform"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
}

// Run starts the vigil daemon runtime and blocks until the process receives
// SIGINT or SIGTERM or the command context ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runStamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Daemon.LogDir, fmt.Sprintf("vigil-%s.log", runStamp))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Daemon.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update vigil.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Daemon.LogDir, Pattern: "vigil-*.log", Exclude: []string{logPath}},
	)

	logger.Info("vigil daemon starting",
		logging.String(logging.FieldEventType, "daemon_starting"),
		logging.String("version", config.Version),
		logging.Int("tasks", len(cfg.Tasks)),
		logging.String("log_file", logPath),
	)
	logDependencySnapshot(logger, cfg)
	if err := preflight.Err(preflight.RunAll(cfg)); err != nil {
		logging.ErrorWithContext(logger, "preflight checks failed", "preflight_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run vigil status for per-check detail"),
		)
		return fmt.Errorf("preflight: %w", err)
	}

	pidPath := filepath.Join(cfg.Daemon.LogDir, "vigil.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, corruptBackup, err := state.OpenWithPolicy(cfg.State.Path, cfg.State.OnCorrupt)
	if err != nil {
		logging.ErrorWithContext(logger, "open state store", "state_open_failed",
			logging.Error(err),
			logging.String("path", cfg.State.Path),
			logging.String(logging.FieldErrorHint, "inspect the state file or set state.on_corrupt = \"rebaseline\""),
		)
		return err
	}
	if corruptBackup != "" {
		logging.WarnWithContext(logger, "state file was corrupt; starting from an empty baseline", "state_corrupt",
			logging.String("backup", corruptBackup),
			logging.String(logging.FieldImpact, "every task reports changed on its next run"),
			logging.String(logging.FieldErrorHint, "inspect the preserved backup if the old values matter"),
		)
	}

	recorder, err := history.NewRecorder(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open history journal", "history_open_failed",
			logging.Error(err),
			logging.String("path", cfg.History.Path),
		)
		return err
	}

	notifier := notifications.NewNotifier(cfg)
	executor := runner.New(store, fetcher.New(cfg), transform.New(cfg), action.New(cfg), logger)

	d, err := daemon.New(cfg, executor, recorder, notifier, logger)
	if err != nil {
		_ = recorder.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	if sent, err := sd.SdNotify(false, sd.SdNotifyReady); err != nil {
		logger.Warn("systemd readiness notification failed", logging.Error(err))
	} else if sent {
		logger.Debug("reported readiness to systemd")
	}

	<-signalCtx.Done()
	logger.Info("vigil daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"),
	)
	if _, err := sd.SdNotify(false, sd.SdNotifyStopping); err != nil {
		logger.Warn("systemd stopping notification failed", logging.Error(err))
	}
	d.Stop()
	return nil
}

// ensureCurrentLogPointer keeps <log_dir>/vigil.log pointing at the newest
// per-run log file. Symlinks are preferred; hard links cover filesystems
// without symlink support.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "vigil.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	shell := ""
	shellAvailable := false
	for _, status := range deps.CheckBinaries(deps.Required(cfg)) {
		if status.Name == "Shell" {
			shell = status.Command
			shellAvailable = status.Available
		}
	}
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("shell", shell),
		logging.Bool("shell_available", shellAvailable),
		logging.Bool("ntfy_topic_present", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("history_enabled", cfg.History.Enabled),
		logging.Int("tasks", len(cfg.Tasks)),
	)
}
