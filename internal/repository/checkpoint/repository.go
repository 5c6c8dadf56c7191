package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/geoalarm/internal/config"
	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

// Repository defines persistence operations for the checkpoint list.
type Repository interface {
	// Load returns the stored checkpoints in creation order.
	// A repository that was never saved to returns an empty list.
	Load(ctx context.Context) ([]domain.Checkpoint, error)
	// Save replaces the stored list with checkpoints.
	Save(ctx context.Context, checkpoints []domain.Checkpoint) error
	// Close releases held resources.
	Close() error
}

var errUnknownDriver = errors.New("unknown storage driver")

// Open builds the repository selected by storage.
func Open(storage config.Storage) (Repository, error) {
	switch storage.Driver {
	case config.DriverFile, "":
		return NewFileRepository(storage.Path), nil
	case config.DriverSQLite:
		return NewSQLiteRepository(storage.Path)
	case config.DriverMemory:
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDriver, storage.Driver)
	}
}
