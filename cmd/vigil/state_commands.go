package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/state"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and maintain persisted task baselines",
	}

	stateCmd.AddCommand(newStateShowCommand(ctx))
	stateCmd.AddCommand(newStateClearCommand(ctx))

	return stateCmd
}

func newStateShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the persisted baseline value per task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := state.Open(cfg.State.Path)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}

			stdout := cmd.OutOrStdout()
			if store.Len() == 0 {
				fmt.Fprintf(stdout, "State store %s is empty\n", cfg.State.Path)
				return nil
			}

			rows := make([][]string, 0, store.Len())
			for _, id := range store.TaskIDs() {
				value, _ := store.Get(id)
				rows = append(rows, []string{
					clipCell(id, 48),
					clipCell(value, 60),
					yesNo(isConfiguredTask(cfg, id)),
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]tableColumn{{header: "Task"}, {header: "Value"}, {header: "Configured"}},
				rows,
			))
			return nil
		},
	}
}

func newStateClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [url]",
		Short: "Drop one baseline, or every baseline when no URL is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := state.Open(cfg.State.Path)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}

			stdout := cmd.OutOrStdout()
			if len(args) == 0 {
				count := store.Len()
				if count == 0 {
					fmt.Fprintf(stdout, "State store %s is already empty\n", cfg.State.Path)
					return nil
				}
				if err := store.ClearAll(); err != nil {
					return fmt.Errorf("clear state: %w", err)
				}
				fmt.Fprintf(stdout, "Cleared %d baseline(s) from %s\n", count, cfg.State.Path)
				fmt.Fprintln(stdout, "Every task's next run will report a change")
				return nil
			}

			taskID := strings.TrimSpace(args[0])
			if _, ok := store.Get(taskID); !ok {
				fmt.Fprintf(stdout, "No baseline stored for %s\n", taskID)
				return nil
			}
			if err := store.Clear(taskID); err != nil {
				return fmt.Errorf("clear task baseline: %w", err)
			}
			fmt.Fprintf(stdout, "Cleared baseline for %s; its next run will report a change\n", taskID)
			return nil
		},
	}
}
