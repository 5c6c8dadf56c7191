package alarm

import "time"

// Phase is the externally visible alarm state.
type Phase int

const (
	// PhaseIdle means no checkpoint is currently triggered.
	PhaseIdle Phase = iota
	// PhaseTriggered means a checkpoint was hit and the alarm is sounding.
	PhaseTriggered
	// PhaseSnoozed means the alarm was silenced and triggers are suppressed until a deadline.
	PhaseSnoozed
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTriggered:
		return "triggered"
	case PhaseSnoozed:
		return "snoozed"
	default:
		return "unknown"
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, bool) {
	switch s {
	case "idle":
		return PhaseIdle, true
	case "triggered":
		return PhaseTriggered, true
	case "snoozed":
		return PhaseSnoozed, true
	default:
		return PhaseIdle, false
	}
}

// Status is the alarm state at a specific point in time.
type Status struct {
	// Phase is the current alarm phase.
	Phase Phase
	// CheckpointID is set while Phase is PhaseTriggered.
	CheckpointID string
	// TriggeredAt is set while Phase is PhaseTriggered.
	TriggeredAt time.Time
	// SnoozedUntil is set while Phase is PhaseSnoozed.
	SnoozedUntil time.Time
	// Timestamp is when the state last changed.
	Timestamp time.Time
	// LastActor is who issued the last command, if any.
	LastActor *Actor
}

// Clone returns a copy of the status to avoid leaking internal references.
func (s *Status) Clone() *Status {
	cloned := *s
	cloned.LastActor = s.LastActor.Clone()

	return &cloned
}
