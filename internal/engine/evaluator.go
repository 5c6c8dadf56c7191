package engine

import (
	"math"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/geo"
)

// Evaluate returns the first checkpoint in snapshot order whose circle
// contains p. Simultaneous hits resolve to the earliest-created checkpoint.
func Evaluate(p domain.Position, snapshot []domain.Checkpoint) (domain.Checkpoint, bool) {
	for _, c := range snapshot {
		if c.Contains(geo.Distance(p.Latitude, p.Longitude, c.Latitude, c.Longitude)) {
			return c, true
		}
	}

	return domain.Checkpoint{}, false
}

// Proximity is the distance from a reference position to a checkpoint.
type Proximity struct {
	Checkpoint domain.Checkpoint
	// DistanceMeters is measured to the checkpoint center.
	DistanceMeters float64
	// RemainingMeters is the distance left until the radius is crossed; zero when inside.
	RemainingMeters float64
	// Inside reports whether p lies within the radius.
	Inside bool
}

// Proximities measures p against every checkpoint in snapshot order.
func Proximities(p domain.Position, snapshot []domain.Checkpoint) []Proximity {
	result := make([]Proximity, 0, len(snapshot))

	for _, c := range snapshot {
		distance := geo.Distance(p.Latitude, p.Longitude, c.Latitude, c.Longitude)

		result = append(result, Proximity{
			Checkpoint:      c,
			DistanceMeters:  distance,
			RemainingMeters: math.Max(0, distance-c.RadiusMeters),
			Inside:          c.Contains(distance),
		})
	}

	return result
}
