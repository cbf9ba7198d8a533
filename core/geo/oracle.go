// Package geo answers distance and travel-time queries between coordinates.
// Implementations must be read-only after construction and safe for
// concurrent use.
package geo

import (
	"math"

	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// Oracle computes distances and travel times between coordinates. Distance
// is non-negative and symmetric; the default Haversine backend also respects
// the triangle inequality.
type Oracle interface {
	// Distance returns the distance between a and b in kilometers.
	Distance(a, b model.Coordinate) float64
	// TravelTime returns the travel time between a and b in minutes.
	TravelTime(a, b model.Coordinate) float64
}

// TableOracle is an Oracle that can answer all pairwise queries for a point
// set in one call, as an optimization for backends with request overhead.
type TableOracle interface {
	Oracle
	// Table returns distance (km) and duration (minutes) matrices for the
	// given points.
	Table(points []model.Coordinate) (distances, durations [][]float64, err error)
}

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371

// Haversine is the default great-circle Oracle. Travel time is derived from
// distance at a flat average speed.
type Haversine struct {
	AvgSpeedKmh float64
}

// Distance implements Oracle using the Haversine formula.
func (h Haversine) Distance(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	s := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(s))
}

// TravelTime implements Oracle as distance over average speed.
func (h Haversine) TravelTime(a, b model.Coordinate) float64 {
	return TravelMinutes(h.Distance(a, b), h.AvgSpeedKmh)
}

// TravelMinutes converts a distance to minutes at the given speed.
func TravelMinutes(distanceKm, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return math.Inf(1)
	}
	return distanceKm / speedKmh * 60
}
