package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/geoalarm/internal/api/grpc/alarm"
	httpapi "github.com/oshokin/geoalarm/internal/api/http/position"
	"github.com/oshokin/geoalarm/internal/config"
	"github.com/oshokin/geoalarm/internal/engine"
	"github.com/oshokin/geoalarm/internal/logger"
	"github.com/oshokin/geoalarm/internal/notify"
	"github.com/oshokin/geoalarm/internal/repository/checkpoint"
	"github.com/oshokin/geoalarm/internal/service/sink"
	"github.com/oshokin/geoalarm/internal/service/tracker"
)

// gracefulStopTimeout bounds how long open watch streams may delay shutdown.
const gracefulStopTimeout = 5 * time.Second

// dependencies are the resources Run opens before serving.
type dependencies struct {
	settings *config.Config
	repo     checkpoint.Repository
	listener net.Listener
	sink     sink.Sink
	// httpListener replaces listening on settings.HTTPAddress when set.
	httpListener net.Listener
	// ready, when set, receives the engine once every component is wired.
	ready chan<- *engine.Engine
}

// serve wires the engine to every adapter and runs them until ctx is
// canceled or one of them fails.
func serve(ctx context.Context, deps *dependencies) error {
	settings := deps.settings

	checkpoints, err := deps.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoints: %w", err)
	}

	var rdb *redis.Client

	if settings.Redis.Address != "" {
		if rdb, err = notify.NewRedisClient(ctx, settings.Redis); err != nil {
			return err
		}
	}

	eng, err := engine.New(ctx,
		engine.WithCheckpoints(checkpoints),
		engine.WithDefaultSnooze(settings.Alarm.DefaultSnooze),
	)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}

		return fmt.Errorf("create engine: %w", err)
	}

	logger.InfoKV(ctx, "Checkpoints restored", "count", len(checkpoints))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return eng.Run(gctx) })

	persist := newPersister(ctx, deps.repo, eng)
	g.Go(func() error { return persist.Run(gctx) })

	binding := sink.Bind(ctx, eng, deps.sink)
	defer binding.Close()

	checks := map[string]httpapi.Checker{
		"storage": storageCheck{repo: deps.repo},
	}

	if rdb != nil {
		checks["redis"] = notify.HealthCheck{Client: rdb}
		startNotifier(gctx, g, rdb, settings.Redis, eng)
	}

	if settings.Tracking.PositionFile != "" {
		startTracking(gctx, g, settings.Tracking, eng)
	}

	if settings.HTTPAddress != "" || deps.httpListener != nil {
		srv := httpapi.NewServer(settings.HTTPAddress, httpapi.NewHandler(ctx, eng, checks))

		g.Go(func() error {
			if deps.httpListener != nil {
				return srv.Serve(gctx, deps.httpListener)
			}

			return srv.Run(gctx)
		})
	}

	grpcServer := grpc.NewServer()
	grpcapi.RegisterAlarmServiceServer(grpcServer, grpcapi.NewServer(eng))

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		stopGRPC(grpcServer)

		return nil
	})

	g.Go(func() error {
		if err := grpcServer.Serve(deps.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	if deps.ready != nil {
		deps.ready <- eng
	}

	err = g.Wait()

	logger.Info(ctx, "Geoalarm server stopped")

	return err
}

func startNotifier(ctx context.Context, g *errgroup.Group, rdb *redis.Client, cfg config.Redis, eng *engine.Engine) {
	publisher := notify.NewPublisher(ctx, rdb, cfg.Key, cfg.BufferSize)
	id := eng.SubscribeAll(publisher.Handle)

	g.Go(func() error {
		defer func() { _ = rdb.Close() }()
		defer eng.Unsubscribe(id)

		return publisher.Run(ctx)
	})
}

func startTracking(ctx context.Context, g *errgroup.Group, cfg config.Tracking, eng *engine.Engine) {
	locator := tracker.NewFileLocator(cfg.PositionFile)

	g.Go(func() error {
		return tracker.NewPoller(locator, eng, cfg.PollInterval).Run(ctx)
	})

	if cfg.Watch {
		g.Go(func() error {
			return tracker.NewWatcher(locator, eng).Run(ctx)
		})
	}
}

// stopGRPC drains in-flight calls, then cuts streams that are still open.
func stopGRPC(s *grpc.Server) {
	done := make(chan struct{})

	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(gracefulStopTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.Stop()
		<-done
	}
}

// storageCheck reports whether the checkpoint store can be read.
type storageCheck struct {
	repo checkpoint.Repository
}

func (c storageCheck) Check(ctx context.Context) error {
	_, err := c.repo.Load(ctx)

	return err
}
