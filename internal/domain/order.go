package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderAssigned       OrderStatus = "assigned"
	OrderPreparing      OrderStatus = "preparing"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// InFlightStatuses are the order states that occupy a slot on a driver's
// route. A driver's route sequence always covers exactly these orders.
var InFlightStatuses = []OrderStatus{OrderAssigned, OrderPreparing}

// Delivery-relevant view of an order. Item and customization records are
// owned by order management; the dispatch core reads the delivery location
// and writes assignment and sequencing fields.
type Order struct {
	ID                    uuid.UUID
	Status                OrderStatus
	DriverID              *uuid.UUID
	DeliveryLocation      Coordinate
	DeliveryFee           int
	DeliverySequence      int
	EstimatedDeliveryTime *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
