package sink

import (
	"context"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/logger"
)

// LogSink only writes log lines.
type LogSink struct{}

// Start implements Sink.
func (LogSink) Start(ctx context.Context, checkpoint domain.Checkpoint) error {
	logger.WarnKV(ctx, "ALARM: checkpoint reached",
		"checkpoint_id", checkpoint.ID,
		"label", checkpoint.Label,
	)

	return nil
}

// Stop implements Sink.
func (LogSink) Stop(ctx context.Context) error {
	logger.Info(ctx, "Alarm silenced")

	return nil
}
