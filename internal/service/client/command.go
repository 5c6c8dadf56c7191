package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc"

	"github.com/oshokin/geoalarm/internal/config"
	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
	"github.com/oshokin/geoalarm/internal/logger"
	"github.com/oshokin/geoalarm/internal/service/common"
	"github.com/oshokin/geoalarm/internal/version"
)

// Options configures how geoalarm-ctl reaches the daemon.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// RetryFor keeps retrying alarm commands while the daemon is unavailable.
	RetryFor time.Duration
	// Out receives the printed results. Defaults to stdout.
	Out io.Writer
}

// API is the daemon surface geoalarm-ctl uses. *common.Client satisfies it.
type API interface {
	AddCheckpoint(ctx context.Context, in domain.CheckpointInput) (domain.Checkpoint, error)
	RemoveCheckpoint(ctx context.Context, id string) (bool, error)
	ListCheckpoints(ctx context.Context) ([]domain.Checkpoint, error)
	ListCheckpointsFrom(ctx context.Context, from domain.Position) ([]engine.Proximity, error)
	SubmitPosition(ctx context.Context, p domain.Position) error
	Stop(ctx context.Context, actor *domain.Actor) (*common.CommandResult, error)
	Snooze(ctx context.Context, minutes int, actor *domain.Actor) (*common.CommandResult, error)
	ClearSnooze(ctx context.Context, actor *domain.Actor) (*common.CommandResult, error)
	Status(ctx context.Context) (domain.Status, error)
	WatchEvents(ctx context.Context, fn func(domain.Event) error) error
}

// Run connects using opts and hands a Controller to fn.
func Run(ctx context.Context, opts *Options, fn func(ctx context.Context, c *Controller) error) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	ctx = logger.WithName(ctx, "geoalarm-ctl")

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	api, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithDialOptions(grpc.WithUserAgent(version.UserAgent("geoalarm-ctl"))),
	)
	if err != nil {
		return err
	}

	defer func() {
		_ = api.Close()
	}()

	logger.DebugKV(ctx, "Connected", "server_address", serverAddress, "actor", actor.String())

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return fn(ctx, NewController(api, actor, out, opts.RetryFor))
}
