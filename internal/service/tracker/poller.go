package tracker

import (
	"context"
	"errors"
	"time"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
	"github.com/oshokin/geoalarm/internal/logger"
)

// Poller periodically locates and submits foreground samples.
type Poller struct {
	locator   Locator
	submitter Submitter
	interval  time.Duration
}

// NewPoller creates a poller running every interval.
func NewPoller(locator Locator, submitter Submitter, interval time.Duration) *Poller {
	return &Poller{
		locator:   locator,
		submitter: submitter,
		interval:  interval,
	}
}

// Run polls once immediately and then on every tick until ctx is canceled.
// Location failures are logged and the loop continues.
func (p *Poller) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "poller")

	logger.InfoKV(ctx, "Polling position", "interval", p.interval.String())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.poll(ctx); err != nil {
			if errors.Is(err, engine.ErrStopped) {
				return nil
			}

			logger.WarnKV(ctx, "Position poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	position, err := p.locator.Locate(ctx)
	if err != nil {
		return err
	}

	position.Source = domain.SourceForeground

	return p.submitter.SubmitPosition(ctx, position)
}
