package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oshokin/geoalarm/internal/config"
	"github.com/oshokin/geoalarm/internal/logger"
	"github.com/oshokin/geoalarm/internal/repository/checkpoint"
	"github.com/oshokin/geoalarm/internal/service/sink"
)

// Options controls the geoalarm-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// CheckpointsPath overrides the configured storage path.
	CheckpointsPath string
	// Silent replaces the audible player with log output.
	Silent bool
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the daemon and blocks until ctx is canceled or a component fails.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger.Configure(settings.LogLevel, settings.LogFormat)
	defer logger.Sync()

	ctx = logger.WithName(ctx, "geoalarm-server")

	if pids, listErr := otherInstances(); listErr != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", listErr)
	} else if len(pids) > 0 {
		logger.WarnKV(ctx, "Another geoalarm-server is already running", "pids", pids)
	}

	if opts.CheckpointsPath != "" {
		settings.Storage.Path = opts.CheckpointsPath
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repo, err := checkpoint.Open(settings.Storage)
	if err != nil {
		return fmt.Errorf("open checkpoint storage: %w", err)
	}

	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close checkpoint storage", "error", closeErr)
		}
	}()

	alarmSink, err := newSink(ctx, settings.Alarm, opts.Silent)
	if err != nil {
		return err
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	logger.InfoKV(ctx, "Geoalarm server listening",
		"listen_address", listenAddress,
		"storage_driver", settings.Storage.Driver,
		"storage_path", settings.Storage.Path,
	)

	return serve(ctx, &dependencies{
		settings: settings,
		repo:     repo,
		listener: lis,
		sink:     alarmSink,
	})
}

// newSink picks the audible player, falling back to log output on systems
// without a default one.
func newSink(ctx context.Context, cfg config.Alarm, silent bool) (sink.Sink, error) {
	if silent {
		return sink.LogSink{}, nil
	}

	player, err := sink.NewCommandSink(cfg.Command)

	switch {
	case err == nil:
		return player, nil
	case errors.Is(err, sink.ErrUnsupportedOS):
		logger.WarnKV(ctx, "No alarm player available, alarms will only be logged", "error", err)

		return sink.LogSink{}, nil
	default:
		return nil, fmt.Errorf("create alarm player: %w", err)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}
