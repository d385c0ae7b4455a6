package ports

import (
	"context"
	"time"

	"delivery-dispatch-service/internal/domain"

	"github.com/google/uuid"
)

// Port: boundary to driver state and per-driver routes.
type DriverStore interface {
	GetDriver(ctx context.Context, id uuid.UUID) (*domain.Driver, error)
	// AvailableDrivers returns drivers with status available or busy and
	// spare capacity, least-loaded first.
	AvailableDrivers(ctx context.Context) ([]*domain.Driver, error)
	// BusyDriversWithCapacity returns reassignment candidates: busy drivers
	// that can still take an order, least-loaded first.
	BusyDriversWithCapacity(ctx context.Context) ([]*domain.Driver, error)
	// TryIncrementLoad atomically increments the driver's order count and
	// marks it busy, only if the capacity guard still holds. Returns false
	// when the guard fails (driver full or no longer eligible).
	TryIncrementLoad(ctx context.Context, driverID uuid.UUID) (bool, error)
	// DecrementLoad releases one slot taken by TryIncrementLoad, returning
	// the driver to available when no orders remain.
	DecrementLoad(ctx context.Context, driverID uuid.UUID) error
	UpdateLocation(ctx context.Context, driverID uuid.UUID, location domain.Coordinate, at time.Time) error

	// GetDriverRoute returns nil without error when no route exists yet.
	GetDriverRoute(ctx context.Context, driverID uuid.UUID) (*domain.DriverRoute, error)
	UpsertDriverRoute(ctx context.Context, route *domain.DriverRoute) error
}
