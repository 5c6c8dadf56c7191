package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/geoalarm/internal/service/client"
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	var minutes int

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the sounding alarm and consume its checkpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.Stop(ctx)
			})
		},
	}

	snoozeCmd := &cobra.Command{
		Use:   "snooze",
		Short: "Silence the sounding alarm for a while and keep its checkpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.Snooze(ctx, minutes)
			})
		},
	}

	snoozeCmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "snooze length in minutes (daemon default when 0)")

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "End an active snooze so checkpoints can trigger again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.ClearSnooze(ctx)
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the alarm state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.Status(ctx)
			})
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print engine events as they happen.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.Watch(ctx)
			})
		},
	}

	rootCmd.AddCommand(stopCmd, snoozeCmd, resumeCmd, statusCmd, watchCmd)
}
