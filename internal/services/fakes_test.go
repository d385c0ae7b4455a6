package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/geo"
	"delivery-dispatch-service/internal/ports"
)

var testSupplier = domain.Coordinate{Lon: 120.9025, Lat: 14.4444}

// stubProvider serves scripted driving distances keyed by coordinate pair,
// estimating from straight-line distance for unscripted pairs.
type stubProvider struct {
	meters map[string]int
}

func stubKey(a, b domain.Coordinate) string {
	return fmt.Sprintf("%.4f,%.4f|%.4f,%.4f", a.Lon, a.Lat, b.Lon, b.Lat)
}

func (p *stubProvider) set(a, b domain.Coordinate, meters int) {
	if p.meters == nil {
		p.meters = make(map[string]int)
	}
	p.meters[stubKey(a, b)] = meters
}

func (p *stubProvider) DrivingDistance(ctx context.Context, origin, destination domain.Coordinate) (ports.DistanceResult, error) {
	meters, ok := p.meters[stubKey(origin, destination)]
	if !ok {
		meters = int(math.Round(geo.Haversine(origin, destination) * 1000 * 1.3))
	}
	// 30 km/h over the given distance.
	return ports.DistanceResult{
		DistanceMeters:  meters,
		DurationSeconds: meters * 3600 / 30000,
	}, nil
}

// In-memory stores backing the service tests. Guarded by one mutex each so
// the concurrent-dispatch test exercises real interleavings.

type memDriverStore struct {
	mu      sync.Mutex
	drivers map[uuid.UUID]*domain.Driver
	routes  map[uuid.UUID]*domain.DriverRoute
}

func newMemDriverStore() *memDriverStore {
	return &memDriverStore{
		drivers: make(map[uuid.UUID]*domain.Driver),
		routes:  make(map[uuid.UUID]*domain.DriverRoute),
	}
}

func (s *memDriverStore) add(d *domain.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.drivers[d.ID] = &cp
}

func (s *memDriverStore) addRoute(r *domain.DriverRoute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.routes[r.DriverID] = &cp
}

func (s *memDriverStore) GetDriver(ctx context.Context, id uuid.UUID) (*domain.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, fmt.Errorf("driver %s: not found", id)
	}
	cp := *d
	return &cp, nil
}

// sortedDrivers returns matching drivers least-loaded first with a stable
// ID tie-break, mirroring the store ordering contract.
func (s *memDriverStore) sortedDrivers(match func(*domain.Driver) bool) []*domain.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		if match(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CurrentOrders != out[j].CurrentOrders {
			return out[i].CurrentOrders < out[j].CurrentOrders
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *memDriverStore) AvailableDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.sortedDrivers(func(d *domain.Driver) bool {
		return d.EligibleForWork()
	}), nil
}

func (s *memDriverStore) BusyDriversWithCapacity(ctx context.Context) ([]*domain.Driver, error) {
	return s.sortedDrivers(func(d *domain.Driver) bool {
		return d.Status == domain.DriverBusy && d.HasCapacity()
	}), nil
}

func (s *memDriverStore) TryIncrementLoad(ctx context.Context, driverID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return false, fmt.Errorf("driver %s: not found", driverID)
	}
	if !d.EligibleForWork() {
		return false, nil
	}
	d.CurrentOrders++
	d.Status = domain.DriverBusy
	return true, nil
}

func (s *memDriverStore) DecrementLoad(ctx context.Context, driverID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return fmt.Errorf("driver %s: not found", driverID)
	}
	if d.CurrentOrders > 0 {
		d.CurrentOrders--
	}
	if d.CurrentOrders == 0 && d.Status == domain.DriverBusy {
		d.Status = domain.DriverAvailable
	}
	return nil
}

func (s *memDriverStore) UpdateLocation(ctx context.Context, driverID uuid.UUID, location domain.Coordinate, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return fmt.Errorf("driver %s: not found", driverID)
	}
	d.CurrentLocation = &location
	d.LastLocationUpdate = &at
	return nil
}

func (s *memDriverStore) GetDriverRoute(ctx context.Context, driverID uuid.UUID) (*domain.DriverRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[driverID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memDriverStore) UpsertDriverRoute(ctx context.Context, route *domain.DriverRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *route
	s.routes[route.DriverID] = &cp
	return nil
}

type memOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
	seq    int
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[uuid.UUID]*domain.Order)}
}

func (s *memOrderStore) add(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *o
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Unix(int64(s.seq), 0)
	}
	s.orders[o.ID] = &cp
}

func (s *memOrderStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = domain.OrderPending
	}
	s.add(order)
	return nil
}

func (s *memOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: not found", id)
	}
	cp := *o
	return &cp, nil
}

func (s *memOrderStore) OrdersForDriver(ctx context.Context, driverID uuid.UUID, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[domain.OrderStatus]struct{}, len(statuses))
	for _, st := range statuses {
		wanted[st] = struct{}{}
	}

	out := make([]*domain.Order, 0, 4)
	for _, o := range s.orders {
		if o.DriverID == nil || *o.DriverID != driverID {
			continue
		}
		if _, ok := wanted[o.Status]; !ok {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *memOrderStore) UpdateAssignment(ctx context.Context, orderID, driverID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: not found", orderID)
	}
	id := driverID
	o.DriverID = &id
	o.Status = domain.OrderAssigned
	return nil
}

func (s *memOrderStore) ClearAssignment(ctx context.Context, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: not found", orderID)
	}
	o.DriverID = nil
	o.Status = domain.OrderPending
	o.DeliverySequence = 0
	o.EstimatedDeliveryTime = nil
	return nil
}

func (s *memOrderStore) UpdateSchedule(ctx context.Context, orderID uuid.UUID, sequence int, eta time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: not found", orderID)
	}
	o.DeliverySequence = sequence
	t := eta
	o.EstimatedDeliveryTime = &t
	return nil
}
