package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/logger"
	"delivery-dispatch-service/internal/ports"
)

// ErrInvalidAddress is returned when the delivery address carries no
// parseable coordinate. Terminal; no state is mutated.
var ErrInvalidAddress = errors.New("invalid address")

// commitAttempts bounds how often a dispatch loops back to candidate
// re-evaluation after losing a capacity race.
const commitAttempts = 3

// Assignment is the outcome of a successful dispatch.
type Assignment struct {
	OrderID               uuid.UUID `json:"order_id"`
	DriverID              uuid.UUID `json:"driver_id"`
	DeliverySequence      int       `json:"delivery_sequence"`
	EstimatedDeliveryTime time.Time `json:"estimated_delivery_time"`
	Reassigned            bool      `json:"reassigned"`
}

// DispatchOptions are the tuning knobs for the assignment algorithm.
type DispatchOptions struct {
	Supplier            domain.Coordinate
	MaxReturnDistanceKm float64
	MaxTimeWindow       time.Duration
	MinEfficiencyGain   float64
	BatchThreshold      int
	PerStopTime         time.Duration
}

// Dispatcher assigns new orders to drivers and maintains their routes.
//
// Each HandleNewOrder call is an independent unit of work. The
// read-modify-write over one driver's load and route is serialized by a
// per-driver mutex plus a conditional load increment at the store, so two
// orders racing for the last slot on a driver cannot both win.
type Dispatcher struct {
	Registry  *Registry
	Optimizer *Optimizer
	Provider  ports.DistanceProvider
	Drivers   ports.DriverStore
	Orders    ports.OrderStore
	Opts      DispatchOptions

	log   *logger.Logger
	now   func() time.Time
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewDispatcher(
	registry *Registry,
	optimizer *Optimizer,
	provider ports.DistanceProvider,
	drivers ports.DriverStore,
	orders ports.OrderStore,
	opts DispatchOptions,
	log *logger.Logger,
) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	if opts.PerStopTime <= 0 {
		opts.PerStopTime = 20 * time.Minute
	}
	return &Dispatcher{
		Registry:  registry,
		Optimizer: optimizer,
		Provider:  provider,
		Drivers:   drivers,
		Orders:    orders,
		Opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

func (d *Dispatcher) driverLock(id uuid.UUID) *sync.Mutex {
	mu, _ := d.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// HandleNewOrder assigns the order to a driver and recomputes that
// driver's route and per-stop schedule.
//
// Selection runs in two phases. First the reassignment check: a busy
// driver still near the supplier whose route grows efficiently by taking
// the new stop is redirected instead of burning a fresh driver. If no
// such driver exists, fresh assignment picks the available driver whose
// existing stops average closest to the new location.
//
// Re-dispatching an already-assigned order is undefined; callers guard
// against it.
func (d *Dispatcher) HandleNewOrder(ctx context.Context, orderID uuid.UUID, deliveryAddress any) (*Assignment, error) {
	location, ok := domain.ParseCoordinate(deliveryAddress)
	if !ok {
		return nil, fmt.Errorf("dispatch order %s: %w", orderID, ErrInvalidAddress)
	}

	for attempt := 0; attempt < commitAttempts; attempt++ {
		driver, reassigned, err := d.selectDriver(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("dispatch order %s: %w", orderID, err)
		}

		assignment, committed, err := d.commit(ctx, orderID, driver, reassigned)
		if err != nil {
			return nil, fmt.Errorf("dispatch order %s: %w", orderID, err)
		}
		if committed {
			return assignment, nil
		}

		// Lost the capacity race on this driver. Re-evaluate candidates
		// against current fleet state instead of retrying the same one.
		d.log.WithField("driver_id", driver.ID).WithField("order_id", orderID).
			Info("driver filled up during dispatch, re-evaluating")
	}

	return nil, fmt.Errorf("dispatch order %s: %w", orderID, ErrNoAvailableDrivers)
}

func (d *Dispatcher) selectDriver(ctx context.Context, location domain.Coordinate) (*domain.Driver, bool, error) {
	if driver := d.reassignmentCandidate(ctx, location); driver != nil {
		return driver, true, nil
	}

	driver, err := d.Registry.FindBestDriverForOrder(ctx, location)
	if err != nil {
		return nil, false, err
	}
	return driver, false, nil
}

// reassignmentCandidate scans busy drivers near the supplier and returns
// the first one whose route absorbs the new stop with an efficiency gain
// at or above the threshold. Candidates are evaluated in registry order,
// and the first acceptable one wins; evaluation order is deterministic so
// repeated runs over the same fleet state pick the same driver. Any error
// on this path degrades to fresh assignment rather than failing dispatch.
func (d *Dispatcher) reassignmentCandidate(ctx context.Context, location domain.Coordinate) *domain.Driver {
	candidates, err := d.Registry.ReassignmentCandidates(ctx, d.Opts.Supplier, d.Opts.MaxReturnDistanceKm)
	if err != nil {
		d.log.WithError(err).Warn("reassignment candidate scan failed")
		return nil
	}

	// Drop drivers whose route is too old: they left the supplier too
	// long ago for a return detour to be safe for their existing stops.
	now := d.now()
	routes := make(map[uuid.UUID]*domain.DriverRoute, len(candidates))
	fresh := candidates[:0]
	for _, c := range candidates {
		route, err := d.Drivers.GetDriverRoute(ctx, c.ID)
		if err != nil {
			d.log.WithError(err).WithField("driver_id", c.ID).Warn("route lookup failed")
			continue
		}
		if route == nil || route.Age(now) > d.Opts.MaxTimeWindow {
			continue
		}
		routes[c.ID] = route
		fresh = append(fresh, c)
	}
	candidates = fresh

	// With enough survivors, one matrix call re-checks the actual driving
	// distance back to the supplier and drops anyone out of range.
	if len(candidates) >= d.Opts.BatchThreshold && len(candidates) >= 2 {
		candidates = d.filterByDrivingDistance(ctx, candidates)
	}

	for _, c := range candidates {
		route := routes[c.ID]
		gain, err := d.simulatedGain(ctx, c, route, location)
		if err != nil {
			d.log.WithError(err).WithField("driver_id", c.ID).Warn("reassignment simulation failed")
			continue
		}
		if gain >= d.Opts.MinEfficiencyGain {
			d.log.WithField("driver_id", c.ID).WithField("gain", gain).Info("reassigning in-flight driver")
			return c
		}
	}
	return nil
}

func (d *Dispatcher) filterByDrivingDistance(ctx context.Context, candidates []*domain.Driver) []*domain.Driver {
	mp, ok := d.Provider.(ports.DistanceMatrixProvider)
	if !ok {
		return candidates
	}

	origins := make([]domain.Coordinate, len(candidates))
	for i, c := range candidates {
		origins[i] = *c.CurrentLocation
	}

	matrix, err := mp.BatchDistances(ctx, origins, []domain.Coordinate{d.Opts.Supplier})
	if err != nil || len(matrix) != len(candidates) {
		return candidates
	}

	maxMeters := d.Opts.MaxReturnDistanceKm * 1000
	kept := candidates[:0]
	for i, c := range candidates {
		if len(matrix[i]) == 1 && float64(matrix[i][0].DistanceMeters) <= maxMeters {
			kept = append(kept, c)
		}
	}
	return kept
}

// simulatedGain recomputes the candidate's route with the new stop
// inserted and returns the fractional distance reduction relative to the
// current route.
func (d *Dispatcher) simulatedGain(
	ctx context.Context,
	driver *domain.Driver,
	route *domain.DriverRoute,
	location domain.Coordinate,
) (float64, error) {
	if route.TotalDistanceKm <= 0 {
		return 0, nil
	}

	orders, err := d.Orders.OrdersForDriver(ctx, driver.ID, domain.InFlightStatuses)
	if err != nil {
		return 0, err
	}

	stops := make([]domain.Coordinate, 0, len(orders)+1)
	for _, o := range orders {
		stops = append(stops, o.DeliveryLocation)
	}
	stops = append(stops, location)

	plan, err := d.Optimizer.OptimizeStops(ctx, d.Opts.Supplier, stops)
	if err != nil {
		return 0, err
	}

	simulatedKm := float64(plan.TotalDistanceMeters) / 1000
	return (route.TotalDistanceKm - simulatedKm) / route.TotalDistanceKm, nil
}

// commit is the write phase: take the driver's slot, bind the order, and
// recompute the full route and schedule. Returns committed=false when the
// capacity guard fails, signaling the caller to re-evaluate candidates.
func (d *Dispatcher) commit(ctx context.Context, orderID uuid.UUID, driver *domain.Driver, reassigned bool) (*Assignment, bool, error) {
	mu := d.driverLock(driver.ID)
	mu.Lock()
	defer mu.Unlock()

	ok, err := d.Drivers.TryIncrementLoad(ctx, driver.ID)
	if err != nil {
		return nil, false, fmt.Errorf("increment load for driver %s: %w", driver.ID, err)
	}
	if !ok {
		return nil, false, nil
	}

	if err := d.Orders.UpdateAssignment(ctx, orderID, driver.ID); err != nil {
		d.rollbackCommit(ctx, orderID, driver.ID, false)
		return nil, false, fmt.Errorf("assign order to driver %s: %w", driver.ID, err)
	}

	assignment, err := d.recomputeRoute(ctx, orderID, driver.ID)
	if err != nil {
		d.rollbackCommit(ctx, orderID, driver.ID, true)
		return nil, false, err
	}
	assignment.Reassigned = reassigned
	return assignment, true, nil
}

// rollbackCommit compensates a half-done commit: the slot taken by
// TryIncrementLoad is released, and when the order was already bound to the
// driver it reverts to pending. Rollback failures are logged, not
// propagated; the dispatch error the caller sees is the original one.
func (d *Dispatcher) rollbackCommit(ctx context.Context, orderID, driverID uuid.UUID, unassign bool) {
	if unassign {
		if err := d.Orders.ClearAssignment(ctx, orderID); err != nil {
			d.log.WithError(err).WithField("order_id", orderID).Warn("assignment rollback failed")
		}
	}
	if err := d.Drivers.DecrementLoad(ctx, driverID); err != nil {
		d.log.WithError(err).WithField("driver_id", driverID).Warn("load rollback failed")
	}
}

// recomputeRoute rebuilds the driver's route from scratch over every
// in-flight stop. The route is never patched incrementally; a full
// recompute keeps route_sequence, per-stop sequence numbers, and distance
// totals consistent with each other.
func (d *Dispatcher) recomputeRoute(ctx context.Context, newOrderID, driverID uuid.UUID) (*Assignment, error) {
	orders, err := d.Orders.OrdersForDriver(ctx, driverID, domain.InFlightStatuses)
	if err != nil {
		return nil, fmt.Errorf("load stops for driver %s: %w", driverID, err)
	}

	stops := make([]domain.Coordinate, len(orders))
	for i, o := range orders {
		stops[i] = o.DeliveryLocation
	}

	plan, err := d.Optimizer.OptimizeStops(ctx, d.Opts.Supplier, stops)
	if err != nil {
		return nil, fmt.Errorf("optimize route for driver %s: %w", driverID, err)
	}

	sequence := make([]uuid.UUID, len(plan.Sequence))
	for pos, idx := range plan.Sequence {
		sequence[pos] = orders[idx].ID
	}

	now := d.now()
	route := &domain.DriverRoute{
		DriverID:      driverID,
		RouteSequence: sequence,
		RouteData: domain.RouteData{
			Coordinates: plan.Coordinates,
			Distances:   plan.LegDistances,
			Durations:   plan.LegDurations,
		},
		TotalDistanceKm:  float64(plan.TotalDistanceMeters) / 1000,
		DurationMinutes:  plan.TotalDurationSeconds / 60,
		SupplierLocation: d.Opts.Supplier,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := d.Drivers.UpsertDriverRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("persist route for driver %s: %w", driverID, err)
	}

	// Schedule every stop: position in the new sequence times a fixed
	// per-stop increment from now. A simplification, not a true ETA model.
	assignment := &Assignment{OrderID: newOrderID, DriverID: driverID}
	for pos, id := range sequence {
		seq := pos + 1
		eta := now.Add(time.Duration(seq) * d.Opts.PerStopTime)
		if err := d.Orders.UpdateSchedule(ctx, id, seq, eta); err != nil {
			return nil, fmt.Errorf("schedule stop %s: %w", id, err)
		}
		if id == newOrderID {
			assignment.DeliverySequence = seq
			assignment.EstimatedDeliveryTime = eta
		}
	}

	return assignment, nil
}
