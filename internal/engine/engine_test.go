package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

// runEngine starts e in the current bubble and returns a cancel func.
func runEngine(t *testing.T, e *Engine) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	go func() { _ = e.Run(ctx) }()

	return cancel
}

// TestEngine_StopScenario covers outside, inside and Stop end to end.
func TestEngine_StopScenario(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec := newTestEngine(t)

		cancel := runEngine(t, e)
		defer cancel()

		ctx := context.Background()

		_, err := e.AddCheckpoint(ctx, home)
		require.NoError(t, err)

		rec.reset()

		require.NoError(t, e.SubmitPosition(ctx, northOf(home.Latitude, home.Longitude, 1000)))
		synctest.Wait()
		require.Empty(t, rec.all())

		require.NoError(t, e.SubmitPosition(ctx, northOf(home.Latitude, home.Longitude, 200)))
		synctest.Wait()

		require.Equal(t, []domain.EventType{domain.EventAlarmTriggered}, rec.types())

		triggered, ok := rec.all()[0].(domain.AlarmTriggered)
		require.True(t, ok)
		require.Equal(t, "A", triggered.Checkpoint.ID)
		require.False(t, triggered.Position.Timestamp.IsZero(), "missing timestamp is stamped on submit")

		require.True(t, e.Stop(ctx, nil))
		require.Equal(t, []domain.EventType{
			domain.EventAlarmTriggered,
			domain.EventCheckpointRemoved,
			domain.EventAlarmDisarmed,
		}, rec.types())

		require.Empty(t, e.ListCheckpoints())
		require.Equal(t, domain.PhaseIdle, e.Status().Phase)
	})
}

// TestEngine_SnoozeScenario re-triggers the retained checkpoint once the snooze expires.
func TestEngine_SnoozeScenario(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec := newTestEngine(t)

		cancel := runEngine(t, e)
		defer cancel()

		var (
			ctx  = context.Background()
			near = northOf(home.Latitude, home.Longitude, 200)
		)

		_, err := e.AddCheckpoint(ctx, home)
		require.NoError(t, err)

		require.NoError(t, e.SubmitPosition(ctx, near))
		synctest.Wait()
		require.Equal(t, 1, rec.count(domain.EventAlarmTriggered))

		until, ok := e.Snooze(ctx, 5, nil)
		require.True(t, ok)
		require.WithinDuration(t, time.Now().Add(5*time.Minute), until, 0)
		require.Len(t, e.ListCheckpoints(), 1)

		status := e.Status()
		require.Equal(t, domain.PhaseSnoozed, status.Phase)
		require.Equal(t, until, status.SnoozedUntil)

		require.NoError(t, e.SubmitPosition(ctx, near))
		synctest.Wait()
		require.Equal(t, 1, rec.count(domain.EventAlarmTriggered))

		time.Sleep(5 * time.Minute)

		require.NoError(t, e.SubmitPosition(ctx, near))
		synctest.Wait()
		require.Equal(t, 2, rec.count(domain.EventAlarmTriggered))
		require.Equal(t, domain.PhaseTriggered, e.Status().Phase)
	})
}

// TestEngine_SnoozeDefaultDuration uses the configured default for non-positive minutes.
func TestEngine_SnoozeDefaultDuration(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, _ := newTestEngine(t, WithDefaultSnooze(7*time.Minute))

		cancel := runEngine(t, e)
		defer cancel()

		ctx := context.Background()

		_, err := e.AddCheckpoint(ctx, home)
		require.NoError(t, err)

		require.NoError(t, e.SubmitPosition(ctx, northOf(home.Latitude, home.Longitude, 0)))
		synctest.Wait()

		until, ok := e.Snooze(ctx, 0, nil)
		require.True(t, ok)
		require.WithinDuration(t, time.Now().Add(7*time.Minute), until, 0)
	})
}

// TestEngine_SnoozeCapsHugeMinutes keeps oversized requests from wrapping into a past deadline.
func TestEngine_SnoozeCapsHugeMinutes(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, _ := newTestEngine(t)

		cancel := runEngine(t, e)
		defer cancel()

		ctx := context.Background()

		_, err := e.AddCheckpoint(ctx, home)
		require.NoError(t, err)

		for _, minutes := range []int{int(MaxSnoozeMinutes), 200_000_000, math.MaxInt} {
			require.NoError(t, e.SubmitPosition(ctx, northOf(home.Latitude, home.Longitude, 0)))
			synctest.Wait()
			require.Equal(t, domain.PhaseTriggered, e.Status().Phase, "minutes=%d", minutes)

			until, ok := e.Snooze(ctx, minutes, nil)
			require.True(t, ok, "minutes=%d", minutes)
			require.Equal(t, time.Now().Add(time.Duration(MaxSnoozeMinutes)*time.Minute), until)
			require.Equal(t, domain.PhaseSnoozed, e.Status().Phase)

			require.True(t, e.ClearSnooze(ctx, nil))
		}
	})
}

// TestEngine_ConcurrentProducersTriggerOnce submits from two sources at once.
func TestEngine_ConcurrentProducersTriggerOnce(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec := newTestEngine(t, WithMailboxSize(2))

		cancel := runEngine(t, e)
		defer cancel()

		ctx := context.Background()

		_, err := e.AddCheckpoint(ctx, home)
		require.NoError(t, err)

		var wg sync.WaitGroup

		for _, source := range []domain.Source{domain.SourceForeground, domain.SourceBackground} {
			wg.Go(func() {
				for i := range 50 {
					p := northOf(home.Latitude, home.Longitude, float64(i))
					p.Source = source

					if err := e.SubmitPosition(ctx, p); err != nil {
						t.Errorf("submit: %v", err)
						return
					}
				}
			})
		}

		wg.Wait()
		synctest.Wait()

		require.Equal(t, 1, rec.count(domain.EventAlarmTriggered))
		require.Equal(t, domain.PhaseTriggered, e.Status().Phase)
	})
}

// TestEngine_AddCheckpoint covers generated ids, validation and duplicates.
func TestEngine_AddCheckpoint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("generated id", func(t *testing.T) {
		t.Parallel()

		e, rec := newTestEngine(t, WithIDGenerator(func() (string, error) { return "gen-1", nil }))

		c, err := e.AddCheckpoint(ctx, domain.CheckpointInput{
			Latitude:     1,
			Longitude:    2,
			RadiusMeters: 30,
			Label:        "  Office  ",
		})
		require.NoError(t, err)
		require.Equal(t, "gen-1", c.ID)
		require.Equal(t, "Office", c.Label)
		require.False(t, c.CreatedAt.IsZero())

		require.Equal(t, []domain.EventType{domain.EventCheckpointAdded}, rec.types())
	})

	t.Run("default id is a uuid", func(t *testing.T) {
		t.Parallel()

		e, _ := newTestEngine(t)

		c, err := e.AddCheckpoint(ctx, domain.CheckpointInput{Latitude: 1, Longitude: 2, RadiusMeters: 30, Label: "x"})
		require.NoError(t, err)
		require.Len(t, c.ID, 36)
	})

	t.Run("id generator failure", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("entropy exhausted")
		e, _ := newTestEngine(t, WithIDGenerator(func() (string, error) { return "", boom }))

		_, err := e.AddCheckpoint(ctx, domain.CheckpointInput{Latitude: 1, Longitude: 2, RadiusMeters: 30, Label: "x"})
		require.ErrorIs(t, err, boom)
		require.Empty(t, e.ListCheckpoints())
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		e, rec := newTestEngine(t)

		for _, in := range []domain.CheckpointInput{
			{ID: "r", Latitude: 1, Longitude: 2, RadiusMeters: 0, Label: "zero radius"},
			{ID: "n", Latitude: 1, Longitude: 2, RadiusMeters: -5, Label: "negative radius"},
			{ID: "la", Latitude: 91, Longitude: 2, RadiusMeters: 5, Label: "lat"},
			{ID: "lo", Latitude: 1, Longitude: -181, RadiusMeters: 5, Label: "lon"},
			{ID: "lb", Latitude: 1, Longitude: 2, RadiusMeters: 5, Label: "   "},
		} {
			_, err := e.AddCheckpoint(ctx, in)
			require.ErrorIs(t, err, domain.ErrInvalidCheckpoint, in.Label)
		}

		require.Empty(t, e.ListCheckpoints())
		require.Empty(t, rec.all())
	})

	t.Run("duplicate id", func(t *testing.T) {
		t.Parallel()

		e, _ := newTestEngine(t)

		first, err := e.AddCheckpoint(ctx, home)
		require.NoError(t, err)

		dup := home
		dup.Label = "Other"

		_, err = e.AddCheckpoint(ctx, dup)
		require.ErrorIs(t, err, domain.ErrDuplicateID)
		require.Equal(t, []domain.Checkpoint{first}, e.ListCheckpoints())
	})

	t.Run("removed id cannot be reused", func(t *testing.T) {
		t.Parallel()

		e, rec := newTestEngine(t)

		_, err := e.AddCheckpoint(ctx, home)
		require.NoError(t, err)
		require.True(t, e.RemoveCheckpoint(ctx, "A"))
		require.False(t, e.RemoveCheckpoint(ctx, "A"))

		_, err = e.AddCheckpoint(ctx, home)
		require.ErrorIs(t, err, domain.ErrDuplicateID)

		require.Equal(t, []domain.EventType{
			domain.EventCheckpointAdded,
			domain.EventCheckpointRemoved,
		}, rec.types())
	})
}

// TestEngine_RestoreCheckpoints preloads persisted checkpoints silently.
func TestEngine_RestoreCheckpoints(t *testing.T) {
	t.Parallel()

	restored := []domain.Checkpoint{
		{ID: "a", Latitude: 1, Longitude: 1, RadiusMeters: 10, Label: "one"},
		{ID: "b", Latitude: 2, Longitude: 2, RadiusMeters: 10, Label: "two"},
	}

	e, rec := newTestEngine(t, WithCheckpoints(restored))

	list := e.ListCheckpoints()
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].ID)
	require.Equal(t, "b", list[1].ID)
	require.False(t, list[0].CreatedAt.IsZero())
	require.Empty(t, rec.all())
	require.Equal(t, domain.PhaseIdle, e.Status().Phase)

	_, err := New(context.Background(), WithCheckpoints([]domain.Checkpoint{restored[0], restored[0]}))
	require.ErrorIs(t, err, domain.ErrDuplicateID)

	_, err = New(context.Background(), WithCheckpoints([]domain.Checkpoint{{ID: "bad"}}))
	require.ErrorIs(t, err, domain.ErrInvalidCheckpoint)
}

// TestEngine_Proximities reports distance and remaining meters per checkpoint.
func TestEngine_Proximities(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)

	_, err := e.AddCheckpoint(context.Background(), home)
	require.NoError(t, err)

	prox := e.Proximities(northOf(home.Latitude, home.Longitude, 800))
	require.Len(t, prox, 1)
	require.InDelta(t, 800, prox[0].DistanceMeters, 0.01)
	require.InDelta(t, 300, prox[0].RemainingMeters, 0.01)
	require.False(t, prox[0].Inside)
}

// TestEngine_HandlerReadsAndDefersCommands reads state from inside a handler
// and issues Stop from a separate goroutine.
func TestEngine_HandlerReadsAndDefersCommands(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec := newTestEngine(t)

		cancel := runEngine(t, e)
		defer cancel()

		ctx := context.Background()

		var (
			seen    domain.Status
			listed  int
			stopped = make(chan bool, 1)
		)

		e.Subscribe(domain.EventAlarmTriggered, func(domain.Event) {
			seen = e.Status()
			listed = len(e.ListCheckpoints())

			go func() { stopped <- e.Stop(ctx, nil) }()
		})

		_, err := e.AddCheckpoint(ctx, home)
		require.NoError(t, err)

		require.NoError(t, e.SubmitPosition(ctx, northOf(home.Latitude, home.Longitude, 0)))
		synctest.Wait()

		require.True(t, <-stopped)
		require.Equal(t, domain.PhaseTriggered, seen.Phase)
		require.Equal(t, "A", seen.CheckpointID)
		require.Equal(t, 1, listed)

		require.Equal(t, domain.PhaseIdle, e.Status().Phase)
		require.Empty(t, e.ListCheckpoints())
		require.Equal(t, 1, rec.count(domain.EventAlarmDisarmed))
	})
}

// TestEngine_InstancesAreIndependent runs two engines side by side.
func TestEngine_InstancesAreIndependent(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		first, firstRec := newTestEngine(t)
		second, secondRec := newTestEngine(t)

		cancelFirst := runEngine(t, first)
		defer cancelFirst()

		cancelSecond := runEngine(t, second)
		defer cancelSecond()

		ctx := context.Background()

		_, err := first.AddCheckpoint(ctx, home)
		require.NoError(t, err)

		require.NoError(t, second.SubmitPosition(ctx, northOf(home.Latitude, home.Longitude, 0)))
		synctest.Wait()

		require.Len(t, firstRec.all(), 1)
		require.Empty(t, secondRec.all())
		require.Equal(t, domain.PhaseIdle, second.Status().Phase)
	})
}
