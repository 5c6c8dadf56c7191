package engine

import (
	"context"
	"sync"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/logger"
)

// Handler receives published events. It runs synchronously on the
// publishing goroutine.
type Handler func(event domain.Event)

// SubscriptionID identifies a subscription for Unsubscribe.
type SubscriptionID uint64

type subscription struct {
	id SubscriptionID
	// eventType is empty for subscribers of every type.
	eventType domain.EventType
	handler   Handler
}

// Bus delivers events synchronously to subscribers in subscription order.
// The subscriber list is copy-on-write: Publish iterates the list as it was
// when publishing started, so unsubscribing applies to future emissions only.
type Bus struct {
	ctx    context.Context //nolint:containedctx // Carries the named logger for handler failures.
	subs   []subscription
	nextID SubscriptionID
	mu     sync.Mutex
}

// NewBus creates an event bus logging through the logger carried by ctx.
func NewBus(ctx context.Context) *Bus {
	return &Bus{
		ctx: logger.WithName(ctx, "bus"),
	}
}

// Subscribe registers h for events of the given type.
func (b *Bus) Subscribe(eventType domain.EventType, h Handler) SubscriptionID {
	return b.add(eventType, h)
}

// SubscribeAll registers h for every event type.
func (b *Bus) SubscribeAll(h Handler) SubscriptionID {
	return b.add("", h)
}

// Unsubscribe removes a subscription and reports whether it existed.
// It is safe to call from inside a handler.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id != id {
			continue
		}

		next := make([]subscription, 0, len(b.subs)-1)
		next = append(next, b.subs[:i]...)
		b.subs = append(next, b.subs[i+1:]...)

		return true
	}

	return false
}

// Publish delivers event to every matching subscriber on the calling goroutine.
// A panicking handler is logged and skipped.
func (b *Bus) Publish(event domain.Event) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	for _, s := range subs {
		if s.eventType != "" && s.eventType != event.Type() {
			continue
		}

		b.deliver(s, event)
	}
}

func (b *Bus) add(eventType domain.EventType, h Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++

	next := make([]subscription, 0, len(b.subs)+1)
	next = append(next, b.subs...)
	b.subs = append(next, subscription{
		id:        b.nextID,
		eventType: eventType,
		handler:   h,
	})

	return b.nextID
}

func (b *Bus) deliver(s subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(b.ctx, "Event handler panicked",
				"subscription_id", s.id,
				"event_type", event.Type(),
				"panic", r,
			)
		}
	}()

	s.handler(event)
}
