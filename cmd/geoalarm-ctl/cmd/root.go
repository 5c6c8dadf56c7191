package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/geoalarm/internal/service/client"
	"github.com/oshokin/geoalarm/internal/version"
)

var (
	// options are shared by every subcommand.
	options client.Options

	// rootCmd represents the base command for controlling the daemon.
	rootCmd = &cobra.Command{
		Use:   "geoalarm-ctl",
		Short: "Control a running geoalarm daemon.",
		Long: `Manages checkpoints, reports positions and answers the alarm of a geoalarm daemon.

Coordinates accept signed decimal degrees (28.6139) or degrees, minutes and
seconds with a hemisphere (28° 36' 50" N).`,
		SilenceUsage: true,
	}
)

// Execute runs the geoalarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run executes fn against the daemon with signal-aware cancellation.
func run(cmd *cobra.Command, fn func(ctx context.Context, c *client.Controller) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts := options
	opts.Out = cmd.OutOrStdout()

	return client.Run(ctx, &opts, fn)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", "", "path to configuration file (default geoalarm-settings.yaml when present)")
	flags.StringVarP(&options.ServerAddress, "server", "a", "", "daemon address, overrides the configured one")
	flags.DurationVar(&options.RetryFor, "retry", 0, "keep retrying alarm commands for this long while the daemon is unreachable")
}
