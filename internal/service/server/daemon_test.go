package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/geoalarm/internal/config"
	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
	"github.com/oshokin/geoalarm/internal/repository/checkpoint"
	"github.com/oshokin/geoalarm/internal/service/common"
)

type countingSink struct {
	starts, stops int
	mu            sync.Mutex
}

func (s *countingSink) Start(context.Context, domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.starts++

	return nil
}

func (s *countingSink) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stops++

	return nil
}

func (s *countingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.starts, s.stops
}

func listen(t *testing.T) net.Listener {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	return lis
}

func TestServeEndToEnd(t *testing.T) {
	t.Parallel()

	settings := &config.Config{Storage: config.Storage{Driver: config.DriverMemory}}
	require.NoError(t, config.Validate(settings))

	seed := domain.Checkpoint{
		ID:           "office",
		Latitude:     55.75,
		Longitude:    37.61,
		RadiusMeters: 150,
		Label:        "Office",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	var (
		repo         = checkpoint.NewMemoryRepository(seed)
		alarmSink    = &countingSink{}
		grpcListener = listen(t)
		httpListener = listen(t)
		ready        = make(chan *engine.Engine, 1)
		done         = make(chan error, 1)
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	serveCtx, stop := context.WithCancel(ctx)

	go func() {
		done <- serve(serveCtx, &dependencies{
			settings:     settings,
			repo:         repo,
			listener:     grpcListener,
			sink:         alarmSink,
			httpListener: httpListener,
			ready:        ready,
		})
	}()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	}

	client, err := common.Dial(ctx, grpcListener.Addr().String(), common.WithCallTimeout(5*time.Second))
	require.NoError(t, err)

	defer func() { require.NoError(t, client.Close()) }()

	list, err := client.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "office", list[0].ID)

	require.NoError(t, client.SubmitPosition(ctx, domain.Position{Latitude: seed.Latitude, Longitude: seed.Longitude}))

	require.Eventually(t, func() bool {
		current, err := client.Status(ctx)
		return err == nil && current.Phase == domain.PhaseTriggered
	}, 5*time.Second, 10*time.Millisecond)

	result, err := client.Stop(ctx, &domain.Actor{Hostname: "laptop", Username: "ops"})
	require.NoError(t, err)
	require.True(t, result.Applied)

	starts, stops := alarmSink.counts()
	require.Equal(t, 1, starts)
	require.Equal(t, 1, stops)

	// The consumed checkpoint is persisted away.
	require.Eventually(t, func() bool {
		saved, err := repo.Load(ctx)
		return err == nil && len(saved) == 0
	}, 5*time.Second, 10*time.Millisecond)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+httpListener.Addr().String()+"/healthz", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stop()
	require.NoError(t, <-done)
}

func TestServeFailsOnBrokenStorage(t *testing.T) {
	t.Parallel()

	settings := &config.Config{Storage: config.Storage{Driver: config.DriverMemory}}
	require.NoError(t, config.Validate(settings))

	lis := listen(t)
	defer func() { _ = lis.Close() }()

	err := serve(t.Context(), &dependencies{
		settings: settings,
		repo:     brokenRepository{},
		listener: lis,
		sink:     &countingSink{},
	})
	require.ErrorContains(t, err, "load checkpoints")
}
