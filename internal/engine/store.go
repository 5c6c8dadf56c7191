package engine

import (
	"fmt"
	"sync"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

// Store owns the mutable checkpoint set in creation order.
type Store struct {
	// items holds checkpoints in insertion order.
	items []domain.Checkpoint
	// ids indexes live checkpoint ids.
	ids map[string]struct{}
	// removed remembers ids that left the store; they can never come back.
	removed map[string]struct{}
	// mu guards all fields; Snapshot only holds it for the copy.
	mu sync.RWMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		ids:     make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
}

// Add inserts c at the end of the creation order.
// It fails with ErrDuplicateID if the id is live or was removed before.
func (s *Store) Add(c domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[c.ID]; ok {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateID, c.ID)
	}

	if _, ok := s.removed[c.ID]; ok {
		return fmt.Errorf("%w: %q was already consumed", domain.ErrDuplicateID, c.ID)
	}

	s.items = append(s.items, c)
	s.ids[c.ID] = struct{}{}

	return nil
}

// Remove deletes the checkpoint with the given id.
// It reports whether anything was removed; absent ids are a no-op.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; !ok {
		return false
	}

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)

			break
		}
	}

	delete(s.ids, id)
	s.removed[id] = struct{}{}

	return true
}

// Contains reports whether id is currently in the store.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ids[id]

	return ok
}

// Get returns the live checkpoint with the given id.
func (s *Store) Get(id string) (domain.Checkpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.ids[id]; !ok {
		return domain.Checkpoint{}, false
	}

	for _, c := range s.items {
		if c.ID == id {
			return c, true
		}
	}

	return domain.Checkpoint{}, false
}

// Len returns the number of live checkpoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Snapshot returns an ordered copy of all live checkpoints.
// The copy is safe to iterate without any lock.
func (s *Store) Snapshot() []domain.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]domain.Checkpoint, len(s.items))
	copy(snapshot, s.items)

	return snapshot
}
