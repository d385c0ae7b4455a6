package services

import (
	"context"
	"fmt"
	"math"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/ports"
)

// RoutePlan is an ordered visiting plan over a set of stops.
type RoutePlan struct {
	// Sequence holds indices into the input stop list in visiting order.
	Sequence             []int
	Coordinates          []domain.Coordinate
	LegDistances         []int
	LegDurations         []int
	TotalDistanceMeters  int
	TotalDurationSeconds int
}

// Optimizer computes a stop visiting sequence minimizing total distance.
//
// Exact for zero or one stop. For two or more stops it prefers the
// provider's built-in waypoint optimization and falls back to a greedy
// nearest-neighbor tour. Both are approximations, not an optimal TSP solve;
// determinism and bounded latency are preferred over optimality.
type Optimizer struct {
	Provider ports.DistanceProvider
}

func NewOptimizer(provider ports.DistanceProvider) *Optimizer {
	return &Optimizer{Provider: provider}
}

func (o *Optimizer) OptimizeStops(
	ctx context.Context,
	origin domain.Coordinate,
	stops []domain.Coordinate,
) (*RoutePlan, error) {
	if len(stops) == 0 {
		return &RoutePlan{Sequence: []int{}}, nil
	}

	var sequence []int
	var traced []domain.Coordinate

	switch {
	case len(stops) == 1:
		sequence = []int{0}
	default:
		if rp, ok := o.Provider.(ports.RouteOptimizerProvider); ok {
			optimized, err := rp.OptimizeStops(ctx, origin, stops)
			if err == nil && len(optimized.Sequence) == len(stops) {
				sequence = optimized.Sequence
				traced = optimized.Coordinates
			}
		}
		if sequence == nil {
			seq, err := o.nearestNeighbor(ctx, origin, stops)
			if err != nil {
				return nil, fmt.Errorf("optimize stops: %w", err)
			}
			sequence = seq
		}
	}

	// Per-leg metrics come from the distance provider along the chosen
	// sequence so totals and legs always agree, whichever path produced
	// the ordering.
	plan := &RoutePlan{
		Sequence:     sequence,
		Coordinates:  traced,
		LegDistances: make([]int, 0, len(sequence)),
		LegDurations: make([]int, 0, len(sequence)),
	}

	current := origin
	for _, idx := range sequence {
		stop := stops[idx]
		leg, err := o.Provider.DrivingDistance(ctx, current, stop)
		if err != nil {
			return nil, fmt.Errorf("optimize stops: leg to stop %d: %w", idx, err)
		}
		plan.LegDistances = append(plan.LegDistances, leg.DistanceMeters)
		plan.LegDurations = append(plan.LegDurations, leg.DurationSeconds)
		plan.TotalDistanceMeters += leg.DistanceMeters
		plan.TotalDurationSeconds += leg.DurationSeconds
		current = stop
	}

	if plan.Coordinates == nil {
		plan.Coordinates = make([]domain.Coordinate, 0, len(sequence)+1)
		plan.Coordinates = append(plan.Coordinates, origin)
		for _, idx := range sequence {
			plan.Coordinates = append(plan.Coordinates, stops[idx])
		}
	}

	return plan, nil
}

// nearestNeighbor greedily picks the unvisited stop closest to the current
// position, starting from origin. Ties break on the lowest stop index so
// the tour is reproducible.
func (o *Optimizer) nearestNeighbor(
	ctx context.Context,
	origin domain.Coordinate,
	stops []domain.Coordinate,
) ([]int, error) {
	remaining := make(map[int]struct{}, len(stops))
	for i := range stops {
		remaining[i] = struct{}{}
	}

	sequence := make([]int, 0, len(stops))
	current := origin

	for len(remaining) > 0 {
		best := -1
		bestMeters := math.MaxInt

		for i := range stops {
			if _, ok := remaining[i]; !ok {
				continue
			}
			leg, err := o.Provider.DrivingDistance(ctx, current, stops[i])
			if err != nil {
				return nil, fmt.Errorf("distance to stop %d: %w", i, err)
			}
			// Strict less-than keeps the lowest index on ties since stops
			// are scanned in order.
			if leg.DistanceMeters < bestMeters {
				bestMeters = leg.DistanceMeters
				best = i
			}
		}

		if best < 0 {
			break
		}
		sequence = append(sequence, best)
		delete(remaining, best)
		current = stops[best]
	}

	return sequence, nil
}
