package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/logger"
)

const (
	// DefaultSnooze applies when a snooze request carries no positive duration.
	DefaultSnooze = 5 * time.Minute
	// DefaultMailboxSize is the scheduler mailbox capacity.
	DefaultMailboxSize = 64
	// MaxSnoozeMinutes is the longest snooze a time.Duration can hold.
	MaxSnoozeMinutes = math.MaxInt64 / int64(time.Minute)
)

// Engine is the public face of the geofence trigger and alarm state engine.
// All state lives in the instance; independent engines never share anything.
type Engine struct {
	ctx           context.Context //nolint:containedctx // Carries the named logger.
	store         *Store
	snooze        *SnoozeTimer
	bus           *Bus
	machine       *Machine
	scheduler     *Scheduler
	now           func() time.Time
	newID         func() (string, error)
	defaultSnooze time.Duration
}

// Option configures an Engine.
type Option func(*settings)

type settings struct {
	now           func() time.Time
	newID         func() (string, error)
	defaultSnooze time.Duration
	mailboxSize   int
	restore       []domain.Checkpoint
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultSnooze sets the snooze duration used for non-positive requests.
func WithDefaultSnooze(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.defaultSnooze = d
		}
	}
}

// WithMailboxSize sets the scheduler mailbox capacity.
func WithMailboxSize(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.mailboxSize = n
		}
	}
}

// WithIDGenerator overrides how ids are produced for checkpoints added without one.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithCheckpoints preloads checkpoints, e.g. loaded from persistence.
// No events are published for them and the engine still starts Idle.
func WithCheckpoints(checkpoints []domain.Checkpoint) Option {
	return func(s *settings) {
		s.restore = append(s.restore, checkpoints...)
	}
}

// New builds an engine. The logger carried by ctx is used for all components.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := settings{
		now:           time.Now,
		newID:         newUUIDv7,
		defaultSnooze: DefaultSnooze,
		mailboxSize:   DefaultMailboxSize,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	ctx = logger.WithName(ctx, "engine")

	var (
		store  = NewStore()
		snooze = NewSnoozeTimer(cfg.now)
		bus    = NewBus(ctx)
	)

	for _, c := range cfg.restore {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = cfg.now()
		}

		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("restore checkpoint %q: %w", c.ID, err)
		}

		if err := store.Add(c); err != nil {
			return nil, fmt.Errorf("restore checkpoint: %w", err)
		}
	}

	machine := NewMachine(ctx, store, snooze, bus, cfg.now)

	return &Engine{
		ctx:           ctx,
		store:         store,
		snooze:        snooze,
		bus:           bus,
		machine:       machine,
		scheduler:     NewScheduler(machine, cfg.mailboxSize),
		now:           cfg.now,
		newID:         cfg.newID,
		defaultSnooze: cfg.defaultSnooze,
	}, nil
}

// Run drives the position mailbox until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	logger.InfoKV(e.ctx, "Engine running", "checkpoints", e.store.Len())

	return e.scheduler.Run(ctx)
}

// AddCheckpoint validates in and inserts it. An empty id is replaced by a
// time-ordered UUID. Errors wrap domain.ErrInvalidCheckpoint or
// domain.ErrDuplicateID and leave the engine unchanged.
func (e *Engine) AddCheckpoint(_ context.Context, in domain.CheckpointInput) (domain.Checkpoint, error) {
	in.Normalize()

	if in.ID == "" {
		id, err := e.newID()
		if err != nil {
			return domain.Checkpoint{}, fmt.Errorf("generate checkpoint id: %w", err)
		}

		in.ID = id
	}

	c := domain.Checkpoint{
		ID:           in.ID,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		RadiusMeters: in.RadiusMeters,
		Label:        in.Label,
		CreatedAt:    e.now(),
	}

	if err := c.Validate(); err != nil {
		logger.DebugKV(e.ctx, "Checkpoint rejected", "checkpoint_id", c.ID, "error", err)
		return domain.Checkpoint{}, err
	}

	if err := e.machine.AddCheckpoint(c); err != nil {
		logger.DebugKV(e.ctx, "Checkpoint rejected", "checkpoint_id", c.ID, "error", err)
		return domain.Checkpoint{}, err
	}

	logger.InfoKV(e.ctx, "Checkpoint added",
		"checkpoint_id", c.ID,
		"label", c.Label,
		"radius_m", c.RadiusMeters,
	)

	return c, nil
}

// RemoveCheckpoint deletes a checkpoint. Removing an absent id is a no-op.
func (e *Engine) RemoveCheckpoint(_ context.Context, id string) bool {
	removed := e.machine.RemoveCheckpoint(id)

	logger.DebugKV(e.ctx, "Checkpoint removal requested",
		"checkpoint_id", id, "removed", removed)

	return removed
}

// ListCheckpoints returns all checkpoints in creation order.
func (e *Engine) ListCheckpoints() []domain.Checkpoint {
	return e.store.Snapshot()
}

// Proximities measures p against every checkpoint in creation order.
func (e *Engine) Proximities(p domain.Position) []Proximity {
	return Proximities(p, e.store.Snapshot())
}

// SubmitPosition hands a sample to the scheduler. It is safe to call from any
// number of producers concurrently.
func (e *Engine) SubmitPosition(ctx context.Context, p domain.Position) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = e.now()
	}

	return e.scheduler.Submit(ctx, p)
}

// Stop silences a sounding alarm and consumes its checkpoint.
// It reports false when nothing was sounding.
func (e *Engine) Stop(_ context.Context, actor *domain.Actor) bool {
	return e.machine.Stop(actor)
}

// Snooze silences a sounding alarm for the given minutes, keeping its
// checkpoint. Non-positive minutes use the default snooze and anything
// above MaxSnoozeMinutes is capped.
// It returns the deadline, or false when nothing was sounding.
func (e *Engine) Snooze(_ context.Context, minutes int, actor *domain.Actor) (time.Time, bool) {
	var d time.Duration

	switch {
	case minutes <= 0:
		d = e.defaultSnooze
	case int64(minutes) > MaxSnoozeMinutes:
		d = time.Duration(MaxSnoozeMinutes) * time.Minute
	default:
		d = time.Duration(minutes) * time.Minute
	}

	return e.machine.Snooze(d, actor)
}

// ClearSnooze ends an active snooze. It reports false when none was active.
func (e *Engine) ClearSnooze(_ context.Context, actor *domain.Actor) bool {
	return e.machine.ClearSnooze(actor)
}

// Status returns the current alarm state.
func (e *Engine) Status() domain.Status {
	return e.machine.Status()
}

// Subscribe registers h for events of one type.
//
// Handlers run inside the transition that produced the event, while the
// state machine lock is held. They may read Status, ListCheckpoints and
// Proximities, but must not call AddCheckpoint, RemoveCheckpoint, Stop,
// Snooze or ClearSnooze directly: that deadlocks the engine. Hand such
// commands off to another goroutine instead.
func (e *Engine) Subscribe(eventType domain.EventType, h Handler) SubscriptionID {
	return e.bus.Subscribe(eventType, h)
}

// SubscribeAll registers h for every event type. The restrictions of
// Subscribe apply.
func (e *Engine) SubscribeAll(h Handler) SubscriptionID {
	return e.bus.SubscribeAll(h)
}

// Unsubscribe removes a subscription.
func (e *Engine) Unsubscribe(id SubscriptionID) bool {
	return e.bus.Unsubscribe(id)
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}
