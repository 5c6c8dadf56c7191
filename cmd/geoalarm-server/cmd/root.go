package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/geoalarm/internal/service/server"
	"github.com/oshokin/geoalarm/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// checkpointsPath overrides the configured checkpoint storage path.
	checkpointsPath string
	// silent logs alarms instead of playing a sound.
	silent bool

	// rootCmd represents the base command for running the daemon.
	rootCmd = &cobra.Command{
		Use:   "geoalarm-server [listen-address]",
		Short: "Run the geofence alarm daemon.",
		Long: `Starts the daemon that watches positions against checkpoints and sounds the alarm.

The gRPC control API listens on the specified address or on the port of the
configured server address. Checkpoints are restored from storage at start-up
and saved after every change. Optional components (HTTP position ingest, the
position file tracker and the Redis notifier) start when configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:      configPath,
				ListenAddress:   listenAddress,
				CheckpointsPath: checkpointsPath,
				Silent:          silent,
			})
		},
	}
)

// Execute runs the geoalarm-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default geoalarm-settings.yaml when present)")
	rootCmd.Flags().StringVarP(&checkpointsPath, "checkpoints", "s", "", "override the checkpoint storage path")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "log alarms instead of playing a sound")
}
