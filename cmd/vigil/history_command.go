package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var taskFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent task runs from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history is disabled in the configuration (history.enabled = false)")
			}

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			var records []history.Record
			if filter := strings.TrimSpace(taskFilter); filter != "" {
				records, err = store.TaskRuns(cmd.Context(), filter, limit)
			} else {
				records, err = store.RecentRuns(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(stdout, "No recorded runs")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.FinishedAt.Local().Format(time.DateTime),
					clipCell(rec.TaskID, 48),
					historyOutcome(rec),
					clipCell(rec.Value, 32),
					clipCell(rec.Error, 44),
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]tableColumn{
					{header: "Finished"},
					{header: "Task"},
					{header: "Outcome"},
					{header: "Value"},
					{header: "Error"},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&taskFilter, "task", "", "Only show runs for this task URL")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func historyOutcome(rec history.Record) string {
	if rec.Skipped {
		return "skipped"
	}
	return rec.Outcome
}
