package checkpoint

import (
	"context"
	"slices"
	"sync"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

// MemoryRepository keeps the last saved list in memory only.
type MemoryRepository struct {
	checkpoints []domain.Checkpoint
	saves       int
	mu          sync.Mutex
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository(initial ...domain.Checkpoint) *MemoryRepository {
	return &MemoryRepository{checkpoints: slices.Clone(initial)}
}

// Load returns a copy of the last saved list.
func (r *MemoryRepository) Load(_ context.Context) ([]domain.Checkpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.Checkpoint{}, r.checkpoints...), nil
}

// Save stores a copy of checkpoints.
func (r *MemoryRepository) Save(_ context.Context, checkpoints []domain.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkpoints = slices.Clone(checkpoints)
	r.saves++

	return nil
}

// Saves reports how many times Save was called.
func (r *MemoryRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saves
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}
