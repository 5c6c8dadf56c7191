package alarm

import "time"

// EventType names a kind of engine notification.
type EventType string

const (
	// EventAlarmTriggered fires when a position enters a checkpoint.
	EventAlarmTriggered EventType = "alarm_triggered"
	// EventCheckpointRemoved fires when a checkpoint leaves the store.
	EventCheckpointRemoved EventType = "checkpoint_removed"
	// EventAlarmDisarmed fires when a triggered alarm is stopped or snoozed.
	EventAlarmDisarmed EventType = "alarm_disarmed"
	// EventCheckpointAdded fires when a checkpoint enters the store.
	EventCheckpointAdded EventType = "checkpoint_added"
	// EventSnoozeCleared fires when an active snooze is cancelled.
	EventSnoozeCleared EventType = "snooze_cleared"
)

// RemovalReason tells why a checkpoint left the store.
type RemovalReason string

const (
	// RemovalStopped means the checkpoint was consumed by a Stop command.
	RemovalStopped RemovalReason = "stopped"
	// RemovalDeleted means the user deleted the checkpoint.
	RemovalDeleted RemovalReason = "deleted"
)

// DisarmReason tells how a triggered alarm was silenced.
type DisarmReason string

const (
	// DisarmStopped means the alarm was stopped and its checkpoint consumed.
	DisarmStopped DisarmReason = "stopped"
	// DisarmSnoozed means the alarm was snoozed and its checkpoint retained.
	DisarmSnoozed DisarmReason = "snoozed"
)

// Event is implemented by every notification the engine publishes.
type Event interface {
	// Type returns the event kind used for subscription matching.
	Type() EventType
	// OccurredAt returns when the transition happened.
	OccurredAt() time.Time
}

// AlarmTriggered reports that Position entered Checkpoint.
type AlarmTriggered struct {
	Checkpoint Checkpoint
	Position   Position
	At         time.Time
}

// CheckpointRemoved reports that a checkpoint left the store for good.
type CheckpointRemoved struct {
	CheckpointID string
	Reason       RemovalReason
	At           time.Time
}

// AlarmDisarmed reports that the sounding alarm must be silenced.
type AlarmDisarmed struct {
	CheckpointID string
	Reason       DisarmReason
	// SnoozedUntil is set when Reason is DisarmSnoozed.
	SnoozedUntil time.Time
	Actor        *Actor
	At           time.Time
}

// CheckpointAdded reports that a checkpoint entered the store.
type CheckpointAdded struct {
	Checkpoint Checkpoint
	At         time.Time
}

// SnoozeCleared reports that suppression ended before its deadline.
type SnoozeCleared struct {
	Actor *Actor
	At    time.Time
}

// Type implements Event.
func (AlarmTriggered) Type() EventType { return EventAlarmTriggered }

// OccurredAt implements Event.
func (e AlarmTriggered) OccurredAt() time.Time { return e.At }

// Type implements Event.
func (CheckpointRemoved) Type() EventType { return EventCheckpointRemoved }

// OccurredAt implements Event.
func (e CheckpointRemoved) OccurredAt() time.Time { return e.At }

// Type implements Event.
func (AlarmDisarmed) Type() EventType { return EventAlarmDisarmed }

// OccurredAt implements Event.
func (e AlarmDisarmed) OccurredAt() time.Time { return e.At }

// Type implements Event.
func (CheckpointAdded) Type() EventType { return EventCheckpointAdded }

// OccurredAt implements Event.
func (e CheckpointAdded) OccurredAt() time.Time { return e.At }

// Type implements Event.
func (SnoozeCleared) Type() EventType { return EventSnoozeCleared }

// OccurredAt implements Event.
func (e SnoozeCleared) OccurredAt() time.Time { return e.At }
