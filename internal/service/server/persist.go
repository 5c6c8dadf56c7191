package server

import (
	"context"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
	"github.com/oshokin/geoalarm/internal/logger"
	"github.com/oshokin/geoalarm/internal/repository/checkpoint"
)

// checkpointSource is satisfied by *engine.Engine.
type checkpointSource interface {
	ListCheckpoints() []domain.Checkpoint
	Subscribe(eventType domain.EventType, h engine.Handler) engine.SubscriptionID
	Unsubscribe(id engine.SubscriptionID) bool
}

// persister saves the checkpoint list after it changes. Bursts of changes
// collapse into one save of the latest snapshot.
type persister struct {
	ctx    context.Context //nolint:containedctx // Carries the named logger.
	repo   checkpoint.Repository
	source checkpointSource
	dirty  chan struct{}
	ids    []engine.SubscriptionID
}

func newPersister(ctx context.Context, repo checkpoint.Repository, source checkpointSource) *persister {
	p := &persister{
		ctx:    logger.WithName(ctx, "persister"),
		repo:   repo,
		source: source,
		dirty:  make(chan struct{}, 1),
	}

	p.ids = []engine.SubscriptionID{
		source.Subscribe(domain.EventCheckpointAdded, p.markDirty),
		source.Subscribe(domain.EventCheckpointRemoved, p.markDirty),
	}

	return p
}

// markDirty never blocks the publisher.
func (p *persister) markDirty(domain.Event) {
	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

// Run saves on every change signal until ctx is canceled, then flushes a
// pending change one last time.
func (p *persister) Run(ctx context.Context) error {
	defer func() {
		for _, id := range p.ids {
			p.source.Unsubscribe(id)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			select {
			case <-p.dirty:
				p.save(context.WithoutCancel(ctx))
			default:
			}

			return nil
		case <-p.dirty:
			p.save(ctx)
		}
	}
}

func (p *persister) save(ctx context.Context) {
	checkpoints := p.source.ListCheckpoints()

	if err := p.repo.Save(ctx, checkpoints); err != nil {
		logger.ErrorKV(p.ctx, "Failed to persist checkpoints", "error", err)

		return
	}

	logger.DebugKV(p.ctx, "Checkpoints persisted", "count", len(checkpoints))
}
