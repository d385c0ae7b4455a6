package distance

import (
	"math"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/geo"
	"delivery-dispatch-service/internal/ports"
)

// DefaultRoadFactor inflates great-circle distances to approximate road
// distance.
const DefaultRoadFactor = 1.3

// Estimator produces deterministic straight-line distance estimates. It is
// the terminal fallback of the provider chain and never fails.
type Estimator struct {
	RoadFactor  float64
	AvgSpeedKmh float64
}

func NewEstimator(avgSpeedKmh float64) Estimator {
	return Estimator{RoadFactor: DefaultRoadFactor, AvgSpeedKmh: avgSpeedKmh}
}

// FromStraightLine converts a great-circle distance to a road estimate.
func (e Estimator) FromStraightLine(straightKm float64) ports.DistanceResult {
	meters := straightKm * 1000 * e.RoadFactor
	seconds := meters / 1000 / e.AvgSpeedKmh * 3600
	return ports.DistanceResult{
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(seconds)),
	}
}

// Between estimates the driving distance between two points.
func (e Estimator) Between(a, b domain.Coordinate) ports.DistanceResult {
	return e.FromStraightLine(geo.Haversine(a, b))
}
