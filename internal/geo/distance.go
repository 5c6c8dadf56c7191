package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6_371_000.0

// Distance returns the great-circle distance in meters between two points
// given in signed decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	var (
		phi1      = toRadians(lat1)
		phi2      = toRadians(lat2)
		deltaPhi  = toRadians(lat2 - lat1)
		deltaLamb = toRadians(lon2 - lon1)
	)

	sinPhi := math.Sin(deltaPhi / 2)
	sinLamb := math.Sin(deltaLamb / 2)

	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLamb*sinLamb

	// Rounding pushes a past 1 near antipodes.
	a = math.Min(1, math.Max(0, a))

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
