package sink

import (
	"context"
	"sync"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
	"github.com/oshokin/geoalarm/internal/logger"
)

// Sink makes an alarm audible.
type Sink interface {
	// Start begins sounding for checkpoint.
	Start(ctx context.Context, checkpoint domain.Checkpoint) error
	// Stop silences whatever Start began.
	Stop(ctx context.Context) error
}

// Subscriber is satisfied by *engine.Engine and *engine.Bus.
type Subscriber interface {
	Subscribe(eventType domain.EventType, h engine.Handler) engine.SubscriptionID
	Unsubscribe(id engine.SubscriptionID) bool
}

// Binding connects a sink to the engine's events.
type Binding struct {
	ctx        context.Context //nolint:containedctx // Handlers are invoked by the bus without a context.
	subscriber Subscriber
	sink       Sink
	ids        []engine.SubscriptionID
	sounding   bool
	mu         sync.Mutex
}

// Bind subscribes sink to trigger and disarm events until Close is called.
func Bind(ctx context.Context, subscriber Subscriber, sink Sink) *Binding {
	b := &Binding{
		ctx:        logger.WithName(ctx, "sink"),
		subscriber: subscriber,
		sink:       sink,
	}

	b.ids = []engine.SubscriptionID{
		subscriber.Subscribe(domain.EventAlarmTriggered, b.handle),
		subscriber.Subscribe(domain.EventAlarmDisarmed, b.handle),
	}

	return b
}

// Sounding reports whether the sink was started and not yet stopped.
func (b *Binding) Sounding() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sounding
}

// Close unsubscribes and silences a sink that is still sounding.
func (b *Binding) Close() {
	for _, id := range b.ids {
		b.subscriber.Unsubscribe(id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sounding {
		b.stop("shutdown")
	}
}

func (b *Binding) handle(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch e := event.(type) {
	case domain.AlarmTriggered:
		if b.sounding {
			logger.DebugKV(b.ctx, "Sink already sounding", "checkpoint_id", e.Checkpoint.ID)
			return
		}

		b.sounding = true

		if err := b.sink.Start(b.ctx, e.Checkpoint); err != nil {
			logger.ErrorKV(b.ctx, "Failed to start alarm sink",
				"checkpoint_id", e.Checkpoint.ID,
				"error", err,
			)
		}
	case domain.AlarmDisarmed:
		if !b.sounding {
			return
		}

		b.stop(string(e.Reason))
	}
}

func (b *Binding) stop(reason string) {
	b.sounding = false

	if err := b.sink.Stop(b.ctx); err != nil {
		logger.ErrorKV(b.ctx, "Failed to stop alarm sink", "reason", reason, "error", err)
	}
}
