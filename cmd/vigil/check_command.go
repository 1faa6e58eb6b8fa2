package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/action"
	"vigil/internal/config"
	"vigil/internal/fetcher"
	"vigil/internal/logging"
	"vigil/internal/runner"
	"vigil/internal/state"
	"vigil/internal/tasks"
	"vigil/internal/transform"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "check [url ...]",
		Short: "Run configured tasks once and report their outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			taskSet, err := selectTasks(cfg, args)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			stdout := cmd.OutOrStdout()
			store, corruptBackup, err := state.OpenWithPolicy(cfg.State.Path, cfg.State.OnCorrupt)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			if corruptBackup != "" {
				fmt.Fprintf(stdout, "State file was corrupt; preserved it at %s and starting from an empty baseline\n\n", corruptBackup)
			}

			executor := runner.New(store, fetcher.New(cfg), transform.New(cfg), action.New(cfg), logger)

			rows := make([][]string, 0, len(taskSet))
			changed, unchanged, failed := 0, 0, 0
			for _, task := range taskSet {
				var result runner.Result
				if dryRun {
					result = executor.Probe(cmd.Context(), task)
				} else {
					result = executor.Run(cmd.Context(), task)
				}

				switch {
				case result.Outcome.Failed():
					failed++
				case result.Outcome == runner.OutcomeChanged:
					changed++
				default:
					unchanged++
				}
				rows = append(rows, []string{
					task.ID,
					string(result.Outcome),
					clipCell(result.Value, 48),
					checkDetail(result),
				})
			}

			fmt.Fprintln(stdout, renderTable(
				[]tableColumn{{header: "Task"}, {header: "Outcome"}, {header: "Value"}, {header: "Detail"}},
				rows,
			))
			fmt.Fprintf(stdout, "%d checked: %d changed, %d unchanged, %d failed\n",
				len(taskSet), changed, unchanged, failed)
			if dryRun {
				fmt.Fprintln(stdout, "Dry run: nothing was persisted and no actions ran")
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d tasks failed", failed, len(taskSet))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Fetch and compare without persisting or running actions")
	return cmd
}

// selectTasks resolves positional URL arguments against the configured task
// set, preserving config order when no arguments are given.
func selectTasks(cfg *config.Config, args []string) ([]tasks.Descriptor, error) {
	all := tasks.FromConfig(cfg)
	if len(args) == 0 {
		return all, nil
	}

	byID := make(map[string]tasks.Descriptor, len(all))
	for _, task := range all {
		byID[task.ID] = task
	}

	selected := make([]tasks.Descriptor, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		id := strings.TrimSpace(arg)
		task, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("task %q is not configured", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		selected = append(selected, task)
	}
	return selected, nil
}

func checkDetail(result runner.Result) string {
	switch {
	case result.Err != nil:
		return clipCell(result.Err.Error(), 60)
	case result.ActionErr != nil:
		return clipCell("action failed: "+result.ActionErr.Error(), 60)
	case result.First:
		return "first observation"
	case result.Outcome == runner.OutcomeChanged:
		return clipCell("was: "+result.Previous, 60)
	default:
		return ""
	}
}
