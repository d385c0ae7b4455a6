package ports

import (
	"context"

	"delivery-dispatch-service/internal/domain"
)

// Cached result of a distance or multi-stop route computation.
type CachedRoute struct {
	Coordinates     []domain.Coordinate `json:"coordinates"`
	DistanceMeters  int                 `json:"distance_meters"`
	DurationSeconds int                 `json:"duration_seconds"`
	Sequence        []int               `json:"sequence,omitempty"`
}

// Counters describing route cache effectiveness.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Time-bounded memoization of route computations, keyed by origin,
// destination set, and optimize flag. Lookups with the same destinations in
// a different order hit the same entry. Writes are idempotent overwrites, so
// concurrent writers racing on one key are safe.
type RouteCache interface {
	// Get returns the cached route if present and not expired.
	Get(ctx context.Context, origin domain.Coordinate, destinations []domain.Coordinate, optimize bool) (CachedRoute, bool, error)
	// Set stores the route unconditionally, overwriting any prior entry.
	Set(ctx context.Context, origin domain.Coordinate, destinations []domain.Coordinate, optimize bool, route CachedRoute) error
	// InvalidateAll clears every route entry. Operational and test use.
	InvalidateAll(ctx context.Context) error
	Stats(ctx context.Context) (CacheStats, error)
}
