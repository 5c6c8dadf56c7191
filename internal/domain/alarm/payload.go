package alarm

import (
	"errors"
	"fmt"
	"time"
)

// Payloads are plain maps of JSON-compatible values (string, float64, bool,
// map[string]any, []any). They are the wire shape shared by the gRPC API and
// the Redis notifier.

// ErrInvalidPayload is returned when a payload misses or mistypes a field.
var ErrInvalidPayload = errors.New("invalid payload")

// TimeLayout formats every timestamp in a payload.
const TimeLayout = time.RFC3339Nano

// Payload renders the actor, or nil for a nil actor.
func (a *Actor) Payload() map[string]any {
	if a == nil {
		return nil
	}

	return map[string]any{
		"hostname": a.Hostname,
		"username": a.Username,
	}
}

// Payload renders the checkpoint.
func (c *Checkpoint) Payload() map[string]any {
	m := map[string]any{
		"id":            c.ID,
		"latitude":      c.Latitude,
		"longitude":     c.Longitude,
		"radius_meters": c.RadiusMeters,
		"label":         c.Label,
	}
	putTime(m, "created_at", c.CreatedAt)

	return m
}

// Payload renders the position.
func (p *Position) Payload() map[string]any {
	m := map[string]any{
		"latitude":  p.Latitude,
		"longitude": p.Longitude,
	}
	putTime(m, "timestamp", p.Timestamp)

	if p.Source != "" {
		m["source"] = string(p.Source)
	}

	return m
}

// Payload renders the status.
func (s *Status) Payload() map[string]any {
	m := map[string]any{
		"phase": s.Phase.String(),
	}

	if s.CheckpointID != "" {
		m["checkpoint_id"] = s.CheckpointID
	}

	putTime(m, "triggered_at", s.TriggeredAt)
	putTime(m, "snoozed_until", s.SnoozedUntil)
	putTime(m, "timestamp", s.Timestamp)
	putActor(m, "last_actor", s.LastActor)

	return m
}

// EventPayload renders any engine event with its "type" and "at" fields.
func EventPayload(e Event) map[string]any {
	m := map[string]any{
		"type": string(e.Type()),
	}
	putTime(m, "at", e.OccurredAt())

	switch ev := e.(type) {
	case AlarmTriggered:
		m["checkpoint"] = ev.Checkpoint.Payload()
		m["position"] = ev.Position.Payload()
	case CheckpointRemoved:
		m["checkpoint_id"] = ev.CheckpointID
		m["reason"] = string(ev.Reason)
	case AlarmDisarmed:
		m["checkpoint_id"] = ev.CheckpointID
		m["reason"] = string(ev.Reason)
		putTime(m, "snoozed_until", ev.SnoozedUntil)
		putActor(m, "actor", ev.Actor)
	case CheckpointAdded:
		m["checkpoint"] = ev.Checkpoint.Payload()
	case SnoozeCleared:
		putActor(m, "actor", ev.Actor)
	}

	return m
}

// ActorFromPayload is the inverse of Actor.Payload.
func ActorFromPayload(m map[string]any) *Actor {
	if m == nil {
		return nil
	}

	return &Actor{
		Hostname: stringField(m, "hostname"),
		Username: stringField(m, "username"),
	}
}

// CheckpointInputFromPayload reads the user-supplied checkpoint fields.
// Coordinates and radius are required; id and label may be empty here and
// are checked by the engine.
func CheckpointInputFromPayload(m map[string]any) (CheckpointInput, error) {
	var (
		in  CheckpointInput
		err error
	)

	in.ID = stringField(m, "id")
	in.Label = stringField(m, "label")

	if in.Latitude, err = requiredNumber(m, "latitude"); err != nil {
		return CheckpointInput{}, err
	}

	if in.Longitude, err = requiredNumber(m, "longitude"); err != nil {
		return CheckpointInput{}, err
	}

	if in.RadiusMeters, err = requiredNumber(m, "radius_meters"); err != nil {
		return CheckpointInput{}, err
	}

	return in, nil
}

// CheckpointFromPayload is the inverse of Checkpoint.Payload.
func CheckpointFromPayload(m map[string]any) (Checkpoint, error) {
	in, err := CheckpointInputFromPayload(m)
	if err != nil {
		return Checkpoint{}, err
	}

	createdAt, err := timeField(m, "created_at")
	if err != nil {
		return Checkpoint{}, err
	}

	return Checkpoint{
		ID:           in.ID,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		RadiusMeters: in.RadiusMeters,
		Label:        in.Label,
		CreatedAt:    createdAt,
	}, nil
}

// PositionFromPayload is the inverse of Position.Payload. A missing source
// means remote.
func PositionFromPayload(m map[string]any) (Position, error) {
	var (
		p   Position
		err error
	)

	if p.Latitude, err = requiredNumber(m, "latitude"); err != nil {
		return Position{}, err
	}

	if p.Longitude, err = requiredNumber(m, "longitude"); err != nil {
		return Position{}, err
	}

	if p.Timestamp, err = timeField(m, "timestamp"); err != nil {
		return Position{}, err
	}

	source, ok := ParseSource(stringField(m, "source"))
	if !ok {
		return Position{}, fmt.Errorf("%w: unknown source %q", ErrInvalidPayload, stringField(m, "source"))
	}

	p.Source = source

	return p, nil
}

// StatusFromPayload is the inverse of Status.Payload.
func StatusFromPayload(m map[string]any) (Status, error) {
	phase, ok := ParsePhase(stringField(m, "phase"))
	if !ok {
		return Status{}, fmt.Errorf("%w: unknown phase %q", ErrInvalidPayload, stringField(m, "phase"))
	}

	s := Status{
		Phase:        phase,
		CheckpointID: stringField(m, "checkpoint_id"),
		LastActor:    ActorFromPayload(objectField(m, "last_actor")),
	}

	var err error

	if s.TriggeredAt, err = timeField(m, "triggered_at"); err != nil {
		return Status{}, err
	}

	if s.SnoozedUntil, err = timeField(m, "snoozed_until"); err != nil {
		return Status{}, err
	}

	if s.Timestamp, err = timeField(m, "timestamp"); err != nil {
		return Status{}, err
	}

	return s, nil
}

// EventFromPayload is the inverse of EventPayload.
func EventFromPayload(m map[string]any) (Event, error) {
	at, err := timeField(m, "at")
	if err != nil {
		return nil, err
	}

	switch EventType(stringField(m, "type")) {
	case EventAlarmTriggered:
		c, err := CheckpointFromPayload(objectField(m, "checkpoint"))
		if err != nil {
			return nil, err
		}

		p, err := PositionFromPayload(objectField(m, "position"))
		if err != nil {
			return nil, err
		}

		return AlarmTriggered{Checkpoint: c, Position: p, At: at}, nil
	case EventCheckpointRemoved:
		return CheckpointRemoved{
			CheckpointID: stringField(m, "checkpoint_id"),
			Reason:       RemovalReason(stringField(m, "reason")),
			At:           at,
		}, nil
	case EventAlarmDisarmed:
		until, err := timeField(m, "snoozed_until")
		if err != nil {
			return nil, err
		}

		return AlarmDisarmed{
			CheckpointID: stringField(m, "checkpoint_id"),
			Reason:       DisarmReason(stringField(m, "reason")),
			SnoozedUntil: until,
			Actor:        ActorFromPayload(objectField(m, "actor")),
			At:           at,
		}, nil
	case EventCheckpointAdded:
		c, err := CheckpointFromPayload(objectField(m, "checkpoint"))
		if err != nil {
			return nil, err
		}

		return CheckpointAdded{Checkpoint: c, At: at}, nil
	case EventSnoozeCleared:
		return SnoozeCleared{Actor: ActorFromPayload(objectField(m, "actor")), At: at}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidPayload, stringField(m, "type"))
	}
}

func putTime(m map[string]any, key string, t time.Time) {
	if !t.IsZero() {
		m[key] = t.UTC().Format(TimeLayout)
	}
}

func putActor(m map[string]any, key string, a *Actor) {
	if a != nil {
		m[key] = a.Payload()
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)

	return s
}

func objectField(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)

	return o
}

func requiredNumber(m map[string]any, key string) (float64, error) {
	switch v := m[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidPayload, key)
	}
}

func timeField(m map[string]any, key string) (time.Time, error) {
	s := stringField(m, key)
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, key, err)
	}

	return t, nil
}
