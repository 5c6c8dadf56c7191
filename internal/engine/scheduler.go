package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/logger"
)

var (
	// ErrStopped is returned by Submit once the scheduler loop has exited.
	ErrStopped = errors.New("engine stopped")
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("engine already running")
)

// positionHandler is the single consumer of the mailbox.
type positionHandler interface {
	HandlePosition(p domain.Position) (domain.Checkpoint, bool)
}

// Scheduler merges samples from any number of producers into one FIFO
// mailbox drained by a single goroutine. It neither filters nor deduplicates.
type Scheduler struct {
	handler  positionHandler
	inbox    chan domain.Position
	done     chan struct{}
	running  atomic.Bool
	stopOnce sync.Once
}

// NewScheduler creates a scheduler with a mailbox of the given capacity.
func NewScheduler(handler positionHandler, capacity int) *Scheduler {
	if capacity < 0 {
		capacity = 0
	}

	return &Scheduler{
		handler: handler,
		inbox:   make(chan domain.Position, capacity),
		done:    make(chan struct{}),
	}
}

// Submit enqueues p, blocking while the mailbox is full.
func (s *Scheduler) Submit(ctx context.Context, p domain.Position) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}

	select {
	case s.inbox <- p:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the mailbox until ctx is canceled. Samples still queued at that
// point are dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	defer s.stopOnce.Do(func() { close(s.done) })

	ctx = logger.WithName(ctx, "scheduler")
	logger.Debug(ctx, "Scheduler started")

	for {
		select {
		case <-ctx.Done():
			logger.DebugKV(ctx, "Scheduler stopped", "dropped_samples", len(s.inbox))
			return nil
		case p := <-s.inbox:
			s.handler.HandlePosition(p)
		}
	}
}
