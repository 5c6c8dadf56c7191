package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

// TestStore_AddRemoveContains covers ordering, duplicates and idempotent removal.
func TestStore_AddRemoveContains(t *testing.T) {
	t.Parallel()

	s := NewStore()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Add(domain.Checkpoint{ID: id}))
	}

	require.ErrorIs(t, s.Add(domain.Checkpoint{ID: "a"}), domain.ErrDuplicateID)
	require.Equal(t, 3, s.Len())
	require.True(t, s.Contains("a"))

	ids := func() []string {
		var out []string
		for _, c := range s.Snapshot() {
			out = append(out, c.ID)
		}

		return out
	}

	// Creation order, not id order.
	require.Equal(t, []string{"c", "a", "b"}, ids())

	require.True(t, s.Remove("a"))
	require.False(t, s.Remove("a"))
	require.False(t, s.Remove("missing"))
	require.False(t, s.Contains("a"))
	require.Equal(t, []string{"c", "b"}, ids())

	_, ok := s.Get("a")
	require.False(t, ok)

	got, ok := s.Get("b")
	require.True(t, ok)
	require.Equal(t, "b", got.ID)
}

// TestStore_RemovalIsIrreversible ensures a removed id can never be re-added.
func TestStore_RemovalIsIrreversible(t *testing.T) {
	t.Parallel()

	s := NewStore()
	require.NoError(t, s.Add(domain.Checkpoint{ID: "A"}))
	require.True(t, s.Remove("A"))

	require.ErrorIs(t, s.Add(domain.Checkpoint{ID: "A"}), domain.ErrDuplicateID)
	require.Zero(t, s.Len())
}

// TestStore_SnapshotIsDetached checks later mutations do not leak into a snapshot.
func TestStore_SnapshotIsDetached(t *testing.T) {
	t.Parallel()

	s := NewStore()
	require.NoError(t, s.Add(domain.Checkpoint{ID: "1"}))
	require.NoError(t, s.Add(domain.Checkpoint{ID: "2"}))
	require.NoError(t, s.Add(domain.Checkpoint{ID: "3"}))

	snapshot := s.Snapshot()

	require.True(t, s.Remove("1"))
	require.NoError(t, s.Add(domain.Checkpoint{ID: "4"}))

	snapshot[0].Label = "mutated"

	require.Equal(t, "1", snapshot[0].ID)
	require.Equal(t, "2", snapshot[1].ID)
	require.Equal(t, "3", snapshot[2].ID)

	for _, c := range s.Snapshot() {
		require.NotEqual(t, "mutated", c.Label)
	}
}
