package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/logger"
	"github.com/oshokin/geoalarm/internal/service/common"
)

// retryInterval is the delay between attempts while the daemon is unavailable.
const retryInterval = time.Second

// Controller performs geoalarm-ctl operations and prints their results.
type Controller struct {
	api      API
	actor    *domain.Actor
	out      io.Writer
	retryFor time.Duration
}

// NewController creates a controller. A zero retryFor sends each command once.
func NewController(api API, actor *domain.Actor, out io.Writer, retryFor time.Duration) *Controller {
	return &Controller{
		api:      api,
		actor:    actor,
		out:      out,
		retryFor: retryFor,
	}
}

// AddCheckpoint creates a checkpoint and prints it.
func (c *Controller) AddCheckpoint(ctx context.Context, in domain.CheckpointInput) error {
	added, err := c.api.AddCheckpoint(ctx, in)
	if err != nil {
		return err
	}

	c.printf("Added checkpoint %s %q at %.6f, %.6f (radius %.0f m)\n",
		added.ID, added.Label, added.Latitude, added.Longitude, added.RadiusMeters)

	return nil
}

// RemoveCheckpoint deletes a checkpoint by id.
func (c *Controller) RemoveCheckpoint(ctx context.Context, id string) error {
	removed, err := c.api.RemoveCheckpoint(ctx, id)
	if err != nil {
		return err
	}

	if !removed {
		c.printf("No checkpoint with id %s\n", id)
		return nil
	}

	c.printf("Removed checkpoint %s\n", id)

	return nil
}

// ListCheckpoints prints every checkpoint in creation order.
func (c *Controller) ListCheckpoints(ctx context.Context) error {
	checkpoints, err := c.api.ListCheckpoints(ctx)
	if err != nil {
		return err
	}

	if len(checkpoints) == 0 {
		c.printf("No checkpoints\n")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tLABEL\tLATITUDE\tLONGITUDE\tRADIUS_M\tCREATED")

	for _, cp := range checkpoints {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.6f\t%.6f\t%.0f\t%s\n",
			cp.ID, cp.Label, cp.Latitude, cp.Longitude, cp.RadiusMeters, formatTime(cp.CreatedAt))
	}

	return w.Flush()
}

// ListCheckpointsFrom prints every checkpoint with its distance from the
// given position. REMAINING_M is zero once inside the radius.
func (c *Controller) ListCheckpointsFrom(ctx context.Context, from domain.Position) error {
	proximities, err := c.api.ListCheckpointsFrom(ctx, from)
	if err != nil {
		return err
	}

	if len(proximities) == 0 {
		c.printf("No checkpoints\n")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tLABEL\tRADIUS_M\tDISTANCE_M\tREMAINING_M\tINSIDE")

	for _, p := range proximities {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%.0f\t%t\n",
			p.Checkpoint.ID, p.Checkpoint.Label, p.Checkpoint.RadiusMeters,
			p.DistanceMeters, p.RemainingMeters, p.Inside)
	}

	return w.Flush()
}

// SubmitPosition sends a remote position sample.
func (c *Controller) SubmitPosition(ctx context.Context, p domain.Position) error {
	p.Source = domain.SourceRemote

	if err := c.api.SubmitPosition(ctx, p); err != nil {
		return err
	}

	c.printf("Position %.6f, %.6f queued\n", p.Latitude, p.Longitude)

	return nil
}

// Stop silences the sounding alarm and consumes its checkpoint.
func (c *Controller) Stop(ctx context.Context) error {
	return c.command(ctx, "stop", func(ctx context.Context) (*common.CommandResult, error) {
		return c.api.Stop(ctx, c.actor)
	})
}

// Snooze silences the sounding alarm for minutes. Zero uses the daemon default.
func (c *Controller) Snooze(ctx context.Context, minutes int) error {
	return c.command(ctx, "snooze", func(ctx context.Context) (*common.CommandResult, error) {
		return c.api.Snooze(ctx, minutes, c.actor)
	})
}

// ClearSnooze ends an active snooze early.
func (c *Controller) ClearSnooze(ctx context.Context) error {
	return c.command(ctx, "resume", func(ctx context.Context) (*common.CommandResult, error) {
		return c.api.ClearSnooze(ctx, c.actor)
	})
}

// Status prints the current alarm state.
func (c *Controller) Status(ctx context.Context) error {
	current, err := c.api.Status(ctx)
	if err != nil {
		return err
	}

	c.printf("%s\n", formatStatus(current))

	return nil
}

// Watch prints events until ctx is canceled or the stream ends.
func (c *Controller) Watch(ctx context.Context) error {
	return c.api.WatchEvents(ctx, func(e domain.Event) error {
		c.printf("%s\n", formatEvent(e))
		return nil
	})
}

// command sends an alarm command, retrying while the daemon is unavailable
// and retryFor has not elapsed.
func (c *Controller) command(
	ctx context.Context,
	name string,
	call func(ctx context.Context) (*common.CommandResult, error),
) error {
	ctx = logger.WithKV(ctx, "command", name)

	deadline := time.Now().Add(c.retryFor)

	for {
		result, err := call(ctx)
		if err == nil {
			c.printResult(name, result)
			return nil
		}

		if status.Code(err) != codes.Unavailable || !time.Now().Before(deadline) {
			return err
		}

		logger.WarnKV(ctx, "Daemon unavailable, retrying", "error", err)

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(retryInterval):
		}
	}
}

func (c *Controller) printResult(name string, result *common.CommandResult) {
	if !result.Applied {
		c.printf("Nothing to %s: %s\n", name, formatStatus(result.Status))
		return
	}

	if !result.SnoozedUntil.IsZero() {
		c.printf("Snoozed until %s\n", formatTime(result.SnoozedUntil))
		return
	}

	c.printf("Done: %s\n", formatStatus(result.Status))
}

func (c *Controller) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
