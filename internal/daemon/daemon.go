// Package daemon coordinates the scheduler and its observers behind the
// vigil run command and enforces single-instance execution.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"vigil/internal/config"
	"vigil/internal/history"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/scheduler"
	"vigil/internal/tasks"
)

// Daemon owns the per-task scheduler, the supervisor goroutine that
// consumes its events, and the observers (history, notifications) fed
// from them.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder history.Recorder
	notifier notifications.Notifier
	sched    *scheduler.Scheduler
	taskSet  []tasks.Descriptor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	supervisorQuit chan struct{}
	supervisorDone chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	TaskCount    int
	StatePath    string
	HistoryPath  string
	LockFilePath string
}

// New constructs a daemon around the supplied executor. The executor is
// what actually runs a task pass; everything else here is scheduling and
// observation.
func New(cfg *config.Config, executor scheduler.Executor, recorder history.Recorder, notifier notifications.Notifier, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || executor == nil || recorder == nil || logger == nil {
		return nil, errors.New("daemon requires config, executor, recorder, and logger")
	}
	if notifier == nil {
		notifier = notifications.NewNotifier(nil)
	}

	taskSet := tasks.FromConfig(cfg)
	if len(taskSet) == 0 {
		return nil, errors.New("no tasks configured")
	}

	grace := time.Duration(cfg.Daemon.ShutdownGrace) * time.Second
	lockPath := filepath.Join(cfg.Daemon.LogDir, "vigil.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		notifier: notifier,
		sched:    scheduler.New(executor, taskSet, grace, logger),
		taskSet:  taskSet,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start launches the supervisor and the task loops, and acquires the
// daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vigil daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.supervisorQuit = make(chan struct{})
	d.supervisorDone = make(chan struct{})
	go d.supervise()

	if err := d.sched.Start(d.ctx); err != nil {
		close(d.supervisorQuit)
		<-d.supervisorDone
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start scheduler: %w", err)
	}

	if pruned, err := d.recorder.Prune(d.ctx, d.cfg.History.KeepRuns); err != nil {
		logging.WarnWithContext(d.logger, "failed to prune run history", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the history database keeps growing"),
			logging.String(logging.FieldErrorHint, "check history database path and permissions"),
		)
	} else if pruned > 0 {
		d.logger.Debug("pruned run history", logging.Int64("removed", pruned))
	}

	d.running.Store(true)
	d.logger.Info("vigil daemon started",
		logging.Int("tasks", len(d.taskSet)),
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	if err := d.notifier.DaemonStarted(d.ctx, len(d.taskSet)); err != nil {
		d.warnNotifyFailed(err)
	}
	return nil
}

// Stop shuts down the task loops, drains the supervisor, and releases
// the daemon lock. In-flight executions get the configured grace period.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.sched.Stop()
	close(d.supervisorQuit)
	<-d.supervisorDone

	notifyCtx, cancelNotify := context.WithTimeout(context.Background(), 5*time.Second)
	if err := d.notifier.DaemonStopped(notifyCtx); err != nil {
		d.warnNotifyFailed(err)
	}
	cancelNotify()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("vigil daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.recorder.Close()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		TaskCount:    len(d.taskSet),
		StatePath:    d.cfg.State.Path,
		HistoryPath:  d.cfg.History.Path,
		LockFilePath: d.lockPath,
	}
}

func (d *Daemon) warnNotifyFailed(err error) {
	logging.WarnWithContext(d.logger, "notification delivery failed", "notify_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "operators were not notified"),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network reachability"),
	)
}

// LockHeld reports whether a daemon instance currently holds the lock
// for this configuration, without disturbing it.
func LockHeld(cfg *config.Config) (bool, string) {
	lockPath := filepath.Join(cfg.Daemon.LogDir, "vigil.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, lockPath
	}
	if ok {
		_ = lock.Unlock()
		return false, lockPath
	}
	return true, lockPath
}
