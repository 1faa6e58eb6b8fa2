package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/config"
	"vigil/internal/daemon"
	"vigil/internal/history"
	"vigil/internal/preflight"
	"vigil/internal/state"
	"vigil/internal/tasks"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, storage, and task status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			printSectionHeader(stdout, "Daemon", colorize)
			held, lockPath := daemon.LockHeld(cfg)
			if held {
				message := "running"
				if pid := readPIDFile(filepath.Join(cfg.Daemon.LogDir, "vigil.pid")); pid > 0 {
					message = fmt.Sprintf("running (pid %d)", pid)
				}
				printStatusLine(stdout, "Instance", statusOK, message, colorize)
			} else {
				printStatusLine(stdout, "Instance", statusInfo, "not running", colorize)
			}
			printStatusLine(stdout, "Lock file", statusInfo, lockPath, colorize)
			fmt.Fprintln(stdout)

			printSectionHeader(stdout, "Storage", colorize)
			snapshot, stateKind, stateDetail := describeState(cfg)
			printStatusLine(stdout, "State file", stateKind, stateDetail, colorize)
			if cfg.History.Enabled {
				printStatusLine(stdout, "History", statusInfo, cfg.History.Path, colorize)
			} else {
				printStatusLine(stdout, "History", statusInfo, "disabled", colorize)
			}
			fmt.Fprintln(stdout)

			printSectionHeader(stdout, "Preflight", colorize)
			for _, check := range preflight.RunAll(cfg) {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				printStatusLine(stdout, check.Name, kind, check.Detail, colorize)
			}
			fmt.Fprintln(stdout)

			printSectionHeader(stdout, "Tasks", colorize)
			taskSet := tasks.FromConfig(cfg)
			if len(taskSet) == 0 {
				fmt.Fprintln(stdout, "No tasks configured")
				return nil
			}

			latest := loadLatestRuns(cmd.Context(), cfg)
			rows := make([][]string, 0, len(taskSet))
			for _, task := range taskSet {
				valueCell := "-"
				if value, ok := snapshot[task.ID]; ok {
					valueCell = clipCell(value, 40)
				}
				observedCell := "-"
				if rec, ok := latest[task.ID]; ok {
					observedCell = rec.FinishedAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{
					clipCell(task.ID, 48),
					task.Interval.String(),
					valueCell,
					observedCell,
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]tableColumn{
					{header: "Task"},
					{header: "Interval", alignRight: true},
					{header: "Last Value"},
					{header: "Observed"},
				},
				rows,
			))
			return nil
		},
	}
}

// describeState reads the state store without applying the corruption
// policy; status never mutates anything.
func describeState(cfg *config.Config) (map[string]string, statusKind, string) {
	store, err := state.Open(cfg.State.Path)
	if err != nil {
		if errors.Is(err, state.ErrCorrupt) {
			detail := fmt.Sprintf("%s (corrupt; on_corrupt=%s applies on next run)", cfg.State.Path, cfg.State.OnCorrupt)
			return nil, statusWarn, detail
		}
		return nil, statusError, fmt.Sprintf("%s (error: %v)", cfg.State.Path, err)
	}
	snapshot := store.Snapshot()
	return snapshot, statusOK, fmt.Sprintf("%s (%d baselines)", cfg.State.Path, len(snapshot))
}

// loadLatestRuns fetches the newest journal entry per task. Missing or
// unreadable history degrades to an empty map rather than failing status.
func loadLatestRuns(ctx context.Context, cfg *config.Config) map[string]history.Record {
	if !cfg.History.Enabled {
		return nil
	}
	if _, err := os.Stat(cfg.History.Path); err != nil {
		return nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil
	}
	defer store.Close()

	latest, err := store.LatestByTask(ctx)
	if err != nil {
		return nil
	}
	return latest
}
