package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/logger"
)

// Machine is the single authority over alarm state.
// Every transition holds mu for its whole read-evaluate-write sequence and
// publishes its events before releasing it.
type Machine struct {
	ctx    context.Context //nolint:containedctx // Carries the named logger.
	store  *Store
	snooze *SnoozeTimer
	bus    *Bus
	now    func() time.Time

	// triggeredID is the checkpoint currently sounding, empty when idle.
	triggeredID string
	triggeredAt time.Time
	changedAt   time.Time
	lastActor   *domain.Actor

	// view mirrors the fields above for lock-free Status reads.
	view atomic.Pointer[machineView]
	mu   sync.Mutex
}

type machineView struct {
	triggeredID string
	triggeredAt time.Time
	changedAt   time.Time
	lastActor   *domain.Actor
}

// NewMachine wires a state machine over the given collaborators. It starts Idle.
func NewMachine(ctx context.Context, store *Store, snooze *SnoozeTimer, bus *Bus, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}

	m := &Machine{
		ctx:       logger.WithName(ctx, "machine"),
		store:     store,
		snooze:    snooze,
		bus:       bus,
		now:       now,
		changedAt: now(),
	}
	m.publishView()

	return m
}

// HandlePosition evaluates p and, when Idle and not snoozed, transitions to
// Triggered on the first checkpoint hit. It returns the triggered checkpoint.
func (m *Machine) HandlePosition(p domain.Position) (domain.Checkpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.triggeredID != "" {
		logger.DebugKV(m.ctx, "Position ignored while alarm is sounding",
			"checkpoint_id", m.triggeredID, "source", p.Source)

		return domain.Checkpoint{}, false
	}

	now := m.now()
	if m.snooze.IsActive(now) {
		logger.DebugKV(m.ctx, "Position suppressed by snooze", "source", p.Source)

		return domain.Checkpoint{}, false
	}

	hit, ok := Evaluate(p, m.store.Snapshot())
	if !ok {
		return domain.Checkpoint{}, false
	}

	m.triggeredID = hit.ID
	m.triggeredAt = now
	m.changedAt = now
	m.publishView()

	logger.InfoKV(m.ctx, "Alarm triggered",
		"checkpoint_id", hit.ID,
		"label", hit.Label,
		"source", p.Source,
		"latitude", p.Latitude,
		"longitude", p.Longitude,
	)

	m.bus.Publish(domain.AlarmTriggered{
		Checkpoint: hit,
		Position:   p,
		At:         now,
	})

	return hit, true
}

// Stop silences a sounding alarm and permanently removes its checkpoint.
// It reports false, changing nothing, when no alarm is sounding.
func (m *Machine) Stop(actor *domain.Actor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.triggeredID == "" {
		logger.DebugKV(m.ctx, "Stop ignored, alarm is idle", "actor", actor)

		return false
	}

	var (
		id  = m.triggeredID
		now = m.now()
	)

	// The checkpoint may already be gone if the user deleted it while the
	// alarm was sounding; that counts as handled.
	removed := m.store.Remove(id)

	m.triggeredID = ""
	m.triggeredAt = time.Time{}
	m.changedAt = now
	m.lastActor = actor.Clone()
	m.publishView()

	logger.InfoKV(m.ctx, "Alarm stopped", "checkpoint_id", id, "removed", removed, "actor", actor)

	if removed {
		m.bus.Publish(domain.CheckpointRemoved{
			CheckpointID: id,
			Reason:       domain.RemovalStopped,
			At:           now,
		})
	}

	m.bus.Publish(domain.AlarmDisarmed{
		CheckpointID: id,
		Reason:       domain.DisarmStopped,
		Actor:        actor.Clone(),
		At:           now,
	})

	return true
}

// Snooze silences a sounding alarm, keeps its checkpoint and suppresses all
// triggers for d. It returns the deadline, or false when no alarm is sounding.
func (m *Machine) Snooze(d time.Duration, actor *domain.Actor) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.triggeredID == "" || d <= 0 {
		logger.DebugKV(m.ctx, "Snooze ignored", "alarm_sounding", m.triggeredID != "", "duration", d, "actor", actor)

		return time.Time{}, false
	}

	id := m.triggeredID
	until := m.snooze.Snooze(d)

	m.triggeredID = ""
	m.triggeredAt = time.Time{}
	m.changedAt = m.now()
	m.lastActor = actor.Clone()
	m.publishView()

	logger.InfoKV(m.ctx, "Alarm snoozed", "checkpoint_id", id, "until", until, "actor", actor)

	m.bus.Publish(domain.AlarmDisarmed{
		CheckpointID: id,
		Reason:       domain.DisarmSnoozed,
		SnoozedUntil: until,
		Actor:        actor.Clone(),
		At:           m.changedAt,
	})

	return until, true
}

// ClearSnooze ends an active snooze early. It reports false when none was active.
func (m *Machine) ClearSnooze(actor *domain.Actor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.snooze.Clear() {
		return false
	}

	m.changedAt = m.now()
	m.lastActor = actor.Clone()
	m.publishView()

	logger.InfoKV(m.ctx, "Snooze cleared", "actor", actor)

	m.bus.Publish(domain.SnoozeCleared{
		Actor: actor.Clone(),
		At:    m.changedAt,
	})

	return true
}

// AddCheckpoint inserts an already validated checkpoint.
func (m *Machine) AddCheckpoint(c domain.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Add(c); err != nil {
		return err
	}

	m.bus.Publish(domain.CheckpointAdded{
		Checkpoint: c,
		At:         m.now(),
	})

	return nil
}

// RemoveCheckpoint deletes a checkpoint on user request. Absent ids are a no-op.
// A sounding alarm for the same checkpoint keeps sounding until stopped or snoozed.
func (m *Machine) RemoveCheckpoint(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.store.Remove(id) {
		return false
	}

	m.bus.Publish(domain.CheckpointRemoved{
		CheckpointID: id,
		Reason:       domain.RemovalDeleted,
		At:           m.now(),
	})

	return true
}

// Status returns the current state without taking the transition lock.
// Snoozed is reported while Idle with an unexpired snooze deadline.
func (m *Machine) Status() domain.Status {
	v := m.view.Load()

	status := domain.Status{
		Phase:     domain.PhaseIdle,
		Timestamp: v.changedAt,
		LastActor: v.lastActor.Clone(),
	}

	if v.triggeredID != "" {
		status.Phase = domain.PhaseTriggered
		status.CheckpointID = v.triggeredID
		status.TriggeredAt = v.triggeredAt

		return status
	}

	if deadline, ok := m.snooze.Deadline(); ok && m.now().Before(deadline) {
		status.Phase = domain.PhaseSnoozed
		status.SnoozedUntil = deadline
	}

	return status
}

// publishView must be called with mu held.
func (m *Machine) publishView() {
	m.view.Store(&machineView{
		triggeredID: m.triggeredID,
		triggeredAt: m.triggeredAt,
		changedAt:   m.changedAt,
		lastActor:   m.lastActor,
	})
}
