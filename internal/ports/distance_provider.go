package ports

import (
	"context"

	"delivery-dispatch-service/internal/domain"
)

// Driving distance and travel duration between two points.
type DistanceResult struct {
	DistanceMeters  int
	DurationSeconds int
}

// Contract for retrieving driving distance and duration between coordinates.
// Implementations must absorb external-service failures and answer with an
// estimate instead; distance estimation never fails the caller.
type DistanceProvider interface {
	// Return driving distance and estimated duration between two points.
	DrivingDistance(ctx context.Context, origin, destination domain.Coordinate) (DistanceResult, error)
}

// Optional extension of DistanceProvider that supports batched lookups.
type DistanceMatrixProvider interface {
	DistanceProvider
	// Return the full origins x destinations distance matrix in one call.
	BatchDistances(ctx context.Context, origins, destinations []domain.Coordinate) ([][]DistanceResult, error)
}

// Result of a provider-side multi-stop sequence optimization.
type OptimizedRoute struct {
	// Sequence holds indices into the requested stop list in visiting order.
	Sequence        []int
	DistanceMeters  int
	DurationSeconds int
	// Coordinates trace the route for map display when the provider
	// returned a polyline; may be empty.
	Coordinates []domain.Coordinate
}

// Optional extension for providers with built-in waypoint optimization.
// Callers fall back to local heuristics when OptimizeStops fails.
type RouteOptimizerProvider interface {
	OptimizeStops(ctx context.Context, origin domain.Coordinate, stops []domain.Coordinate) (OptimizedRoute, error)
}
