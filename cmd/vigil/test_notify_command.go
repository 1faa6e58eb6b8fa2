package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(stdout, "No ntfy topic configured; set notifications.ntfy_topic or VIGIL_NTFY_TOPIC")
				return nil
			}

			notifier := notifications.NewNotifier(cfg)
			if err := notifier.TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintf(stdout, "Test notification sent to %s\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}
