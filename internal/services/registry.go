package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/geo"
	"delivery-dispatch-service/internal/ports"
)

// ErrNoAvailableDrivers is returned when the fleet has zero drivers
// eligible for a fresh assignment. Terminal for the dispatch attempt.
var ErrNoAvailableDrivers = errors.New("no available drivers")

// Registry answers fleet queries: who can take work, who is a
// reassignment candidate, and how well a driver's current stop set fits a
// new location.
type Registry struct {
	Drivers ports.DriverStore
	Orders  ports.OrderStore
}

func NewRegistry(drivers ports.DriverStore, orders ports.OrderStore) *Registry {
	return &Registry{Drivers: drivers, Orders: orders}
}

func (r *Registry) AvailableDrivers(ctx context.Context) ([]*domain.Driver, error) {
	drivers, err := r.Drivers.AvailableDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("available drivers: %w", err)
	}
	return drivers, nil
}

// AverageDistanceToOrders returns the mean straight-line distance from the
// driver's in-flight delivery stops to the candidate location. A driver
// with no current orders returns +Inf, meaning "wide open": callers picking
// a minimum must treat +Inf as the best case, not the worst.
func (r *Registry) AverageDistanceToOrders(
	ctx context.Context,
	driverID uuid.UUID,
	location domain.Coordinate,
) (float64, error) {
	orders, err := r.Orders.OrdersForDriver(ctx, driverID, domain.InFlightStatuses)
	if err != nil {
		return 0, fmt.Errorf("average distance to orders: %w", err)
	}
	if len(orders) == 0 {
		return math.Inf(1), nil
	}

	var sum float64
	for _, o := range orders {
		sum += geo.Haversine(o.DeliveryLocation, location)
	}
	return sum / float64(len(orders)), nil
}

// FindBestDriverForOrder picks, among eligible drivers, the one whose
// existing stops average closest to the new location. Drivers with no
// orders win over any loaded driver. Store ordering (least-loaded first)
// breaks ties.
func (r *Registry) FindBestDriverForOrder(
	ctx context.Context,
	location domain.Coordinate,
) (*domain.Driver, error) {
	drivers, err := r.AvailableDrivers(ctx)
	if err != nil {
		return nil, err
	}
	if len(drivers) == 0 {
		return nil, ErrNoAvailableDrivers
	}

	var best *domain.Driver
	bestScore := math.Inf(1)

	for _, d := range drivers {
		score, err := r.AverageDistanceToOrders(ctx, d.ID, location)
		if err != nil {
			return nil, err
		}
		// +Inf means no current orders, the best possible fit. The first
		// unloaded driver in store order wins immediately.
		if math.IsInf(score, 1) {
			return d, nil
		}
		if best == nil || score < bestScore {
			best = d
			bestScore = score
		}
	}

	return best, nil
}

// ReassignmentCandidates returns busy drivers with spare capacity whose
// last known position falls within radiusKm of the supplier, in store
// order. Drivers without a known location are skipped. The geohash cover
// is a coarse prefilter; exact distance is checked on the survivors.
func (r *Registry) ReassignmentCandidates(
	ctx context.Context,
	supplier domain.Coordinate,
	radiusKm float64,
) ([]*domain.Driver, error) {
	drivers, err := r.Drivers.BusyDriversWithCapacity(ctx)
	if err != nil {
		return nil, fmt.Errorf("reassignment candidates: %w", err)
	}

	cells := geo.CoveringCells(supplier, radiusKm)

	out := make([]*domain.Driver, 0, len(drivers))
	for _, d := range drivers {
		if d.CurrentLocation == nil {
			continue
		}
		if !geo.InCells(*d.CurrentLocation, cells) {
			continue
		}
		if geo.Haversine(*d.CurrentLocation, supplier) > radiusKm {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
