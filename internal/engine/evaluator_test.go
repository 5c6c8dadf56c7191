package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/geo"
)

// TestEvaluate_FirstHitWins checks the earliest-created containing checkpoint is returned.
func TestEvaluate_FirstHitWins(t *testing.T) {
	t.Parallel()

	snapshot := []domain.Checkpoint{
		{ID: "far", Latitude: 10, Longitude: 10, RadiusMeters: 100},
		{ID: "wide", Latitude: 28.70, Longitude: 77.10, RadiusMeters: 5_000},
		{ID: "tight", Latitude: 28.70, Longitude: 77.10, RadiusMeters: 300},
	}

	p := northOf(28.70, 77.10, 200)

	hit, ok := Evaluate(p, snapshot)
	require.True(t, ok)
	require.Equal(t, "wide", hit.ID)

	// Property: the hit contains p and nothing earlier does.
	require.LessOrEqual(t, geo.Distance(p.Latitude, p.Longitude, hit.Latitude, hit.Longitude), hit.RadiusMeters)
	require.Greater(t, geo.Distance(p.Latitude, p.Longitude, 10, 10), snapshot[0].RadiusMeters)
}

// TestEvaluate_NoHit covers empty snapshots and out-of-range samples.
func TestEvaluate_NoHit(t *testing.T) {
	t.Parallel()

	_, ok := Evaluate(northOf(0, 0, 0), nil)
	require.False(t, ok)

	snapshot := []domain.Checkpoint{{ID: "A", Latitude: 28.70, Longitude: 77.10, RadiusMeters: 500}}

	_, ok = Evaluate(northOf(28.70, 77.10, 1000), snapshot)
	require.False(t, ok)

	_, ok = Evaluate(northOf(28.70, 77.10, 499), snapshot)
	require.True(t, ok)
}

// TestEvaluate_PropertyOverGrid checks the first-hit property across a grid of samples.
func TestEvaluate_PropertyOverGrid(t *testing.T) {
	t.Parallel()

	snapshot := []domain.Checkpoint{
		{ID: "1", Latitude: 0.000, Longitude: 0.000, RadiusMeters: 800},
		{ID: "2", Latitude: 0.005, Longitude: 0.005, RadiusMeters: 900},
		{ID: "3", Latitude: 0.010, Longitude: 0.000, RadiusMeters: 400},
	}

	for lat := -0.01; lat <= 0.02; lat += 0.001 {
		for lon := -0.01; lon <= 0.02; lon += 0.001 {
			p := domain.Position{Latitude: lat, Longitude: lon}

			hit, ok := Evaluate(p, snapshot)
			for _, c := range snapshot {
				inside := geo.Distance(lat, lon, c.Latitude, c.Longitude) <= c.RadiusMeters
				if !ok {
					require.False(t, inside)
					continue
				}

				if c.ID == hit.ID {
					require.True(t, inside)
					break
				}

				require.False(t, inside, "earlier checkpoint %s also contains the sample", c.ID)
			}
		}
	}
}

// TestProximities reports distances and remaining meters in creation order.
func TestProximities(t *testing.T) {
	t.Parallel()

	snapshot := []domain.Checkpoint{
		{ID: "A", Latitude: 28.70, Longitude: 77.10, RadiusMeters: 500},
		{ID: "B", Latitude: 28.70, Longitude: 77.10, RadiusMeters: 1500},
	}

	got := Proximities(northOf(28.70, 77.10, 1000), snapshot)
	require.Len(t, got, 2)

	require.Equal(t, "A", got[0].Checkpoint.ID)
	require.InDelta(t, 1000, got[0].DistanceMeters, 0.01)
	require.InDelta(t, 500, got[0].RemainingMeters, 0.01)
	require.False(t, got[0].Inside)

	require.Equal(t, "B", got[1].Checkpoint.ID)
	require.Zero(t, got[1].RemainingMeters)
	require.True(t, got[1].Inside)
}
