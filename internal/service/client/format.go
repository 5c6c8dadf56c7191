package client

import (
	"fmt"
	"time"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format(time.DateTime)
}

func formatStatus(s domain.Status) string {
	var text string

	switch s.Phase {
	case domain.PhaseTriggered:
		text = fmt.Sprintf("triggered by %s since %s", s.CheckpointID, formatTime(s.TriggeredAt))
	case domain.PhaseSnoozed:
		text = "snoozed until " + formatTime(s.SnoozedUntil)
	default:
		text = s.Phase.String()
	}

	if s.LastActor != nil {
		text += " (last command by " + s.LastActor.String() + ")"
	}

	return text
}

func formatEvent(e domain.Event) string {
	at := formatTime(e.OccurredAt())

	switch e := e.(type) {
	case domain.AlarmTriggered:
		return fmt.Sprintf("%s  ALARM      %s %q reached at %.6f, %.6f (%s)",
			at, e.Checkpoint.ID, e.Checkpoint.Label, e.Position.Latitude, e.Position.Longitude, e.Position.Source)
	case domain.AlarmDisarmed:
		line := fmt.Sprintf("%s  DISARMED   %s %s by %s", at, e.CheckpointID, e.Reason, e.Actor.String())
		if !e.SnoozedUntil.IsZero() {
			line += " until " + formatTime(e.SnoozedUntil)
		}

		return line
	case domain.CheckpointAdded:
		return fmt.Sprintf("%s  ADDED      %s %q", at, e.Checkpoint.ID, e.Checkpoint.Label)
	case domain.CheckpointRemoved:
		return fmt.Sprintf("%s  REMOVED    %s (%s)", at, e.CheckpointID, e.Reason)
	case domain.SnoozeCleared:
		return fmt.Sprintf("%s  RESUMED    by %s", at, e.Actor.String())
	default:
		return fmt.Sprintf("%s  %s", at, e.Type())
	}
}
