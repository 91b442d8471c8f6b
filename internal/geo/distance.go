// Package geo computes great-circle distances and travel-time estimates for
// the planner. All matrix outputs are integers (meters, minutes) so they can
// feed integer-cost search directly.
package geo

import (
	"math"

	"coldchain-dispatch-service/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// TravelMinutes estimates driving time for a distance at the configured
// average speed.
func TravelMinutes(distanceKm float64, speedKmh int) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return distanceKm / float64(speedKmh) * 60
}

// Matrices holds the pairwise distance and travel-time matrices keyed by
// node index. Both are symmetric with a zero diagonal.
type Matrices struct {
	DistanceM [][]int64
	TimeMin   [][]int64
}

// BuildMatrices computes N×N distance (meters) and time (minutes) matrices
// for a node coordinate list, rounding to the nearest integer.
func BuildMatrices(coords []domain.Coordinates, speedKmh int) Matrices {
	n := len(coords)
	m := Matrices{
		DistanceM: make([][]int64, n),
		TimeMin:   make([][]int64, n),
	}
	for i := range m.DistanceM {
		m.DistanceM[i] = make([]int64, n)
		m.TimeMin[i] = make([]int64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			km := HaversineKm(coords[i], coords[j])
			meters := int64(math.Round(km * 1000))
			minutes := int64(math.Round(TravelMinutes(km, speedKmh)))

			m.DistanceM[i][j] = meters
			m.DistanceM[j][i] = meters
			m.TimeMin[i][j] = minutes
			m.TimeMin[j][i] = minutes
		}
	}

	return m
}
