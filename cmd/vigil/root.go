package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var checkEveryFlag int
	var stateFileFlag string

	ctx := newCommandContext(&configFlag, &checkEveryFlag, &stateFileFlag)

	rootCmd := &cobra.Command{
		Use:           "vigil",
		Short:         "Watch sources for meaningful changes and run actions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().IntVar(&checkEveryFlag, "check-every", 0, "Override the global check interval in seconds")
	rootCmd.PersistentFlags().StringVar(&stateFileFlag, "state-file", "", "Override the state file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newStateCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}
