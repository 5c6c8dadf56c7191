package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
	"github.com/oshokin/geoalarm/internal/logger"
)

// Watcher submits a background sample every time the position file changes.
type Watcher struct {
	locator   *FileLocator
	submitter Submitter
	ready     chan struct{}
}

// NewWatcher creates a watcher for the locator's file.
func NewWatcher(locator *FileLocator, submitter Submitter) *Watcher {
	return &Watcher{
		locator:   locator,
		submitter: submitter,
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the file system watch is in place.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the file's directory until ctx is canceled. Watching the
// directory keeps working when the bridge replaces the file by rename.
func (w *Watcher) Run(ctx context.Context) error {
	ctx = logger.WithKV(logger.WithName(ctx, "watcher"), "path", w.locator.Path())

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}

	defer func() { _ = fsw.Close() }()

	if err = fsw.Add(filepath.Dir(w.locator.Path())); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.locator.Path()), err)
	}

	close(w.ready)
	logger.Info(ctx, "Watching position file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != w.locator.Path() ||
				!(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}

			if err = w.submit(ctx); err != nil {
				if errors.Is(err, engine.ErrStopped) {
					return nil
				}

				// A partially written file is normal; the next write event follows.
				logger.DebugKV(ctx, "Position update skipped", "error", err)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			logger.WarnKV(ctx, "File watcher error", "error", err)
		}
	}
}

func (w *Watcher) submit(ctx context.Context) error {
	position, err := w.locator.Locate(ctx)
	if err != nil {
		return err
	}

	position.Source = domain.SourceBackground

	return w.submitter.SubmitPosition(ctx, position)
}
