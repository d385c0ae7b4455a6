package ports

import (
	"context"
	"time"

	"delivery-dispatch-service/internal/domain"

	"github.com/google/uuid"
)

// Port: boundary to the order-management system. The dispatch core reads
// delivery locations and writes assignment and sequencing fields; everything
// else about an order is owned elsewhere.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// OrdersForDriver returns the driver's orders in the given statuses,
	// oldest first, so route recomputation sees a deterministic stop set.
	OrdersForDriver(ctx context.Context, driverID uuid.UUID, statuses []domain.OrderStatus) ([]*domain.Order, error)
	// UpdateAssignment marks the order assigned to a driver.
	UpdateAssignment(ctx context.Context, orderID, driverID uuid.UUID) error
	// ClearAssignment reverts an order to pending with no driver, sequence,
	// or ETA.
	ClearAssignment(ctx context.Context, orderID uuid.UUID) error
	// UpdateSchedule rewrites an order's delivery sequence position and ETA.
	UpdateSchedule(ctx context.Context, orderID uuid.UUID, sequence int, eta time.Time) error
}
