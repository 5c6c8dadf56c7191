//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	grpcapi "github.com/oshokin/geoalarm/internal/api/grpc/alarm"
	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestCommands_NilActor asserts that a nil actor is rejected by the client.
func TestCommands_NilActor(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.Stop(context.Background(), nil)
	require.ErrorIs(t, err, errActorRequired)

	_, err = c.Snooze(context.Background(), 5, nil)
	require.ErrorIs(t, err, errActorRequired)

	_, err = c.ClearSnooze(context.Background(), nil)
	require.ErrorIs(t, err, errActorRequired)
}

// dialEngine serves a fresh engine over an in-memory connection.
func dialEngine(t *testing.T, ctx context.Context) *Client {
	t.Helper()

	eng, err := engine.New(ctx)
	require.NoError(t, err)

	go func() { _ = eng.Run(ctx) }()

	var (
		listener   = bufconn.Listen(1 << 20)
		grpcServer = grpc.NewServer()
	)

	grpcapi.RegisterAlarmServiceServer(grpcServer, grpcapi.NewServer(eng))

	go func() { _ = grpcServer.Serve(listener) }()

	t.Cleanup(grpcServer.Stop)

	client, err := Dial(ctx, "passthrough:///bufnet",
		WithCallTimeout(2*time.Second),
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		})),
	)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, client.Close()) })

	return client
}

// TestClient_Lifecycle walks checkpoint management, a trigger and a snooze.
func TestClient_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		client = dialEngine(t, ctx)
		actor  = &domain.Actor{Hostname: "laptop", Username: "ops"}
	)

	added, err := client.AddCheckpoint(ctx, domain.CheckpointInput{
		Latitude:     28.70,
		Longitude:    77.10,
		RadiusMeters: 500,
		Label:        "Home",
	})
	require.NoError(t, err)
	require.NotEmpty(t, added.ID)

	_, err = client.AddCheckpoint(ctx, domain.CheckpointInput{ID: added.ID, Latitude: 1, Longitude: 1, RadiusMeters: 1, Label: "dup"})
	require.Equal(t, codes.AlreadyExists, status.Code(err))

	list, err := client.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, added.ID, list[0].ID)

	nearby, err := client.ListCheckpointsFrom(ctx, domain.Position{Latitude: 28.70, Longitude: 77.11})
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	require.Equal(t, added.ID, nearby[0].Checkpoint.ID)
	require.InDelta(t, 976, nearby[0].DistanceMeters, 5)
	require.InDelta(t, nearby[0].DistanceMeters-500, nearby[0].RemainingMeters, 1e-6)
	require.False(t, nearby[0].Inside)

	_, err = client.ListCheckpointsFrom(ctx, domain.Position{Latitude: 120, Longitude: 0})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	result, err := client.Snooze(ctx, 5, actor)
	require.NoError(t, err)
	require.False(t, result.Applied, "nothing is sounding yet")

	require.NoError(t, client.SubmitPosition(ctx, domain.Position{Latitude: 28.70, Longitude: 77.10}))

	require.Eventually(t, func() bool {
		current, err := client.Status(ctx)
		return err == nil && current.Phase == domain.PhaseTriggered && current.CheckpointID == added.ID
	}, 5*time.Second, 10*time.Millisecond)

	result, err = client.Snooze(ctx, 5, actor)
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.False(t, result.SnoozedUntil.IsZero())
	require.Equal(t, domain.PhaseSnoozed, result.Status.Phase)
	require.Equal(t, actor, result.Status.LastActor)

	result, err = client.ClearSnooze(ctx, actor)
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.Equal(t, domain.PhaseIdle, result.Status.Phase)

	removed, err := client.RemoveCheckpoint(ctx, added.ID)
	require.NoError(t, err)
	require.True(t, removed)

	result, err = client.Stop(ctx, actor)
	require.NoError(t, err)
	require.False(t, result.Applied)
}

// TestClient_WatchEvents receives events until the callback stops the loop.
func TestClient_WatchEvents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := dialEngine(t, ctx)
	received := make(chan domain.Event, 1)

	go func() {
		_ = client.WatchEvents(ctx, func(e domain.Event) error {
			received <- e
			return context.Canceled
		})
	}()

	// The subscription is asynchronous; keep adding until an event shows up.
	for i := 0; ; i++ {
		_, err := client.AddCheckpoint(ctx, domain.CheckpointInput{Latitude: 1, Longitude: 1, RadiusMeters: 1, Label: "marker"})
		require.NoError(t, err)

		select {
		case e := <-received:
			require.Equal(t, domain.EventCheckpointAdded, e.Type())
			return
		case <-time.After(20 * time.Millisecond):
			require.Less(t, i, 250)
		}
	}
}
