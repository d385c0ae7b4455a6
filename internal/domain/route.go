package domain

import (
	"time"

	"github.com/google/uuid"
)

// Polyline and per-leg metrics for map display.
type RouteData struct {
	Coordinates []Coordinate `json:"coordinates"`
	Distances   []int        `json:"distances"`
	Durations   []int        `json:"durations"`
}

// Planned multi-stop route for a single driver, owned one-to-one by that
// driver. RouteSequence holds order IDs in visiting order; its position
// determines each order's delivery sequence. The route is recomputed in full
// on every assignment, never patched incrementally, so sequence and distance
// totals stay internally consistent.
type DriverRoute struct {
	DriverID         uuid.UUID
	RouteSequence    []uuid.UUID
	RouteData        RouteData
	TotalDistanceKm  float64
	DurationMinutes  int
	SupplierLocation Coordinate
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Age returns how long ago the route was last recomputed.
func (r *DriverRoute) Age(now time.Time) time.Duration {
	return now.Sub(r.UpdatedAt)
}
