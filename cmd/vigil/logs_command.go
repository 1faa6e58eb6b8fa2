package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"vigil/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			path := filepath.Join(cfg.Daemon.LogDir, "vigil.log")
			lastLines, offset, err := logs.LastLines(path, lines)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(lastLines) == 0 && !follow {
				fmt.Fprintf(stdout, "No log lines at %s; has the daemon run yet?\n", path)
				return nil
			}
			for _, line := range lastLines {
				fmt.Fprintln(stdout, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, func(line string) {
				fmt.Fprintln(stdout, line)
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines until interrupted")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	return cmd
}
