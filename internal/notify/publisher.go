package notify

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/logger"
)

// Pusher is satisfied by *redis.Client.
type Pusher interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// pushTimeout bounds a single LPUSH.
const pushTimeout = 3 * time.Second

// Publisher queues engine events and pushes them to a Redis list.
type Publisher struct {
	ctx     context.Context //nolint:containedctx // Carries the named logger.
	pusher  Pusher
	key     string
	queue   chan []byte
	dropped atomic.Uint64
}

// NewPublisher creates a publisher pushing to key with room for buffer pending events.
func NewPublisher(ctx context.Context, pusher Pusher, key string, buffer int) *Publisher {
	if buffer < 1 {
		buffer = 1
	}

	return &Publisher{
		ctx:    logger.WithKV(logger.WithName(ctx, "notify"), "key", key),
		pusher: pusher,
		key:    key,
		queue:  make(chan []byte, buffer),
	}
}

// Handle is an engine event handler. It never blocks.
func (p *Publisher) Handle(event domain.Event) {
	payload, err := json.Marshal(domain.EventPayload(event))
	if err != nil {
		logger.ErrorKV(p.ctx, "Event encoding failed", "event_type", event.Type(), "error", err)
		return
	}

	select {
	case p.queue <- payload:
	default:
		p.dropped.Add(1)
		logger.WarnKV(p.ctx, "Event dropped, notification buffer is full", "event_type", event.Type())
	}
}

// Dropped reports how many events overflowed the buffer.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Run pushes queued payloads until ctx is canceled. Push failures are
// logged and the payload is discarded.
func (p *Publisher) Run(ctx context.Context) error {
	logger.Debug(p.ctx, "Notifier started")

	for {
		select {
		case <-ctx.Done():
			logger.DebugKV(p.ctx, "Notifier stopped", "pending", len(p.queue))
			return nil
		case payload := <-p.queue:
			p.push(ctx, payload)
		}
	}
}

func (p *Publisher) push(ctx context.Context, payload []byte) {
	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	if err := p.pusher.LPush(pushCtx, p.key, payload).Err(); err != nil {
		logger.ErrorKV(p.ctx, "Event push failed", "error", err)
	}
}
