package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestMachine builds a machine over a fresh store holding the home checkpoint.
func newTestMachine(t *testing.T) (*Machine, *Store, *fakeClock, *recorder) {
	t.Helper()

	var (
		clock = &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
		store = NewStore()
		bus   = NewBus(context.Background())
		rec   = new(recorder)
	)

	bus.SubscribeAll(rec.handle)

	require.NoError(t, store.Add(domain.Checkpoint{
		ID:           home.ID,
		Latitude:     home.Latitude,
		Longitude:    home.Longitude,
		RadiusMeters: home.RadiusMeters,
		Label:        home.Label,
	}))

	m := NewMachine(context.Background(), store, NewSnoozeTimer(clock.Now), bus, clock.Now)

	return m, store, clock, rec
}

// TestMachine_TriggerAndStop walks Idle -> Triggered -> Idle via Stop.
func TestMachine_TriggerAndStop(t *testing.T) {
	t.Parallel()

	m, store, _, rec := newTestMachine(t)
	actor := &domain.Actor{Hostname: "phone", Username: "rider"}

	_, ok := m.HandlePosition(northOf(home.Latitude, home.Longitude, 1000))
	require.False(t, ok)
	require.Equal(t, domain.PhaseIdle, m.Status().Phase)
	require.Empty(t, rec.all())

	hit, ok := m.HandlePosition(northOf(home.Latitude, home.Longitude, 200))
	require.True(t, ok)
	require.Equal(t, "A", hit.ID)

	status := m.Status()
	require.Equal(t, domain.PhaseTriggered, status.Phase)
	require.Equal(t, "A", status.CheckpointID)
	require.False(t, status.TriggeredAt.IsZero())

	// No re-trigger while sounding.
	_, ok = m.HandlePosition(northOf(home.Latitude, home.Longitude, 100))
	require.False(t, ok)
	require.Equal(t, 1, rec.count(domain.EventAlarmTriggered))

	require.True(t, m.Stop(actor))
	require.False(t, store.Contains("A"))

	require.Equal(t, []domain.EventType{
		domain.EventAlarmTriggered,
		domain.EventCheckpointRemoved,
		domain.EventAlarmDisarmed,
	}, rec.types())

	events := rec.all()
	removed, ok := events[1].(domain.CheckpointRemoved)
	require.True(t, ok)
	require.Equal(t, domain.RemovalStopped, removed.Reason)

	disarmed, ok := events[2].(domain.AlarmDisarmed)
	require.True(t, ok)
	require.Equal(t, domain.DisarmStopped, disarmed.Reason)
	require.Equal(t, actor, disarmed.Actor)
	require.NotSame(t, actor, disarmed.Actor)

	status = m.Status()
	require.Equal(t, domain.PhaseIdle, status.Phase)
	require.Equal(t, actor, status.LastActor)

	// The consumed checkpoint never fires again.
	_, ok = m.HandlePosition(northOf(home.Latitude, home.Longitude, 0))
	require.False(t, ok)
}

// TestMachine_SnoozeRetainsCheckpoint walks Triggered -> Snoozed -> re-trigger after the deadline.
func TestMachine_SnoozeRetainsCheckpoint(t *testing.T) {
	t.Parallel()

	m, store, clock, rec := newTestMachine(t)
	near := northOf(home.Latitude, home.Longitude, 200)

	_, ok := m.HandlePosition(near)
	require.True(t, ok)

	until, ok := m.Snooze(5*time.Minute, nil)
	require.True(t, ok)
	require.Equal(t, clock.Now().Add(5*time.Minute), until)
	require.True(t, store.Contains("A"))

	require.Equal(t, []domain.EventType{domain.EventAlarmTriggered, domain.EventAlarmDisarmed}, rec.types())

	disarmed, ok := rec.all()[1].(domain.AlarmDisarmed)
	require.True(t, ok)
	require.Equal(t, domain.DisarmSnoozed, disarmed.Reason)
	require.Equal(t, until, disarmed.SnoozedUntil)

	status := m.Status()
	require.Equal(t, domain.PhaseSnoozed, status.Phase)
	require.Equal(t, until, status.SnoozedUntil)

	clock.Advance(4 * time.Minute)

	_, ok = m.HandlePosition(near)
	require.False(t, ok)
	require.Equal(t, 1, rec.count(domain.EventAlarmTriggered))

	clock.Advance(time.Minute)
	require.Equal(t, domain.PhaseIdle, m.Status().Phase)

	_, ok = m.HandlePosition(near)
	require.True(t, ok)
	require.Equal(t, 2, rec.count(domain.EventAlarmTriggered))
}

// TestMachine_SnoozeIsGlobal verifies a snooze suppresses other checkpoints too.
func TestMachine_SnoozeIsGlobal(t *testing.T) {
	t.Parallel()

	m, store, _, rec := newTestMachine(t)
	require.NoError(t, store.Add(domain.Checkpoint{ID: "B", Latitude: 10, Longitude: 10, RadiusMeters: 100, Label: "Work"}))

	_, ok := m.HandlePosition(northOf(home.Latitude, home.Longitude, 0))
	require.True(t, ok)

	_, ok = m.Snooze(time.Minute, nil)
	require.True(t, ok)

	_, ok = m.HandlePosition(domain.Position{Latitude: 10, Longitude: 10})
	require.False(t, ok)
	require.Equal(t, 1, rec.count(domain.EventAlarmTriggered))
}

// TestMachine_CommandsWhileIdleAreNoOps ensures Stop/Snooze/ClearSnooze on Idle change nothing.
func TestMachine_CommandsWhileIdleAreNoOps(t *testing.T) {
	t.Parallel()

	m, store, _, rec := newTestMachine(t)

	require.False(t, m.Stop(nil))

	_, ok := m.Snooze(5*time.Minute, nil)
	require.False(t, ok)
	require.False(t, m.ClearSnooze(nil))

	require.True(t, store.Contains("A"))
	require.Empty(t, rec.all())
	require.Equal(t, domain.PhaseIdle, m.Status().Phase)

	_, ok = m.HandlePosition(northOf(home.Latitude, home.Longitude, 0))
	require.True(t, ok, "an idle snooze must not have armed suppression")
}

// TestMachine_ZeroSnoozeIsRejected keeps the alarm sounding for a non-positive duration.
func TestMachine_ZeroSnoozeIsRejected(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestMachine(t)

	_, ok := m.HandlePosition(northOf(home.Latitude, home.Longitude, 0))
	require.True(t, ok)

	_, ok = m.Snooze(0, nil)
	require.False(t, ok)
	require.Equal(t, domain.PhaseTriggered, m.Status().Phase)
}

// TestMachine_ClearSnooze re-enables triggers immediately.
func TestMachine_ClearSnooze(t *testing.T) {
	t.Parallel()

	m, _, _, rec := newTestMachine(t)
	near := northOf(home.Latitude, home.Longitude, 10)

	_, ok := m.HandlePosition(near)
	require.True(t, ok)

	_, ok = m.Snooze(30*time.Minute, nil)
	require.True(t, ok)

	actor := &domain.Actor{Hostname: "h", Username: "u"}
	require.True(t, m.ClearSnooze(actor))
	require.Equal(t, domain.EventSnoozeCleared, rec.all()[2].Type())
	require.Equal(t, domain.PhaseIdle, m.Status().Phase)

	_, ok = m.HandlePosition(near)
	require.True(t, ok)
}

// TestMachine_StopAfterUserDeletion treats an already deleted checkpoint as handled.
func TestMachine_StopAfterUserDeletion(t *testing.T) {
	t.Parallel()

	m, store, _, rec := newTestMachine(t)

	_, ok := m.HandlePosition(northOf(home.Latitude, home.Longitude, 0))
	require.True(t, ok)

	require.True(t, m.RemoveCheckpoint("A"))
	require.Equal(t, domain.PhaseTriggered, m.Status().Phase)

	require.True(t, m.Stop(nil))
	require.False(t, store.Contains("A"))

	// One removal event from the deletion, none from Stop.
	require.Equal(t, []domain.EventType{
		domain.EventAlarmTriggered,
		domain.EventCheckpointRemoved,
		domain.EventAlarmDisarmed,
	}, rec.types())

	removed, ok := rec.all()[1].(domain.CheckpointRemoved)
	require.True(t, ok)
	require.Equal(t, domain.RemovalDeleted, removed.Reason)
}

// TestMachine_HandlerMayReadStatus makes sure handlers can inspect state without deadlocking.
func TestMachine_HandlerMayReadStatus(t *testing.T) {
	t.Parallel()

	m, store, _, _ := newTestMachine(t)

	var (
		seen     domain.Phase
		listSize int
	)

	m.bus.Subscribe(domain.EventAlarmTriggered, func(domain.Event) {
		seen = m.Status().Phase
		listSize = len(store.Snapshot())
	})

	_, ok := m.HandlePosition(northOf(home.Latitude, home.Longitude, 0))
	require.True(t, ok)
	require.Equal(t, domain.PhaseTriggered, seen)
	require.Equal(t, 1, listSize)
}
