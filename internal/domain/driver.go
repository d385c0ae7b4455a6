package domain

import (
	"time"

	"github.com/google/uuid"
)

type DriverStatus string

const (
	DriverAvailable  DriverStatus = "available"
	DriverBusy       DriverStatus = "busy"
	DriverOnDelivery DriverStatus = "on_delivery"
	DriverOffline    DriverStatus = "offline"
)

// Delivery driver aggregate. Drivers are created out-of-band (onboarding);
// the dispatch core mutates load and status on assignment, and an external
// location feed updates CurrentLocation.
type Driver struct {
	ID                  uuid.UUID
	Name                string
	Phone               string
	Email               string
	Status              DriverStatus
	CurrentOrders       int
	MaxConcurrentOrders int
	CurrentLocation     *Coordinate
	LastLocationUpdate  *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasCapacity reports whether the driver can take one more order.
func (d *Driver) HasCapacity() bool {
	return d.CurrentOrders < d.MaxConcurrentOrders
}

// EligibleForWork reports whether the driver may receive fresh assignments.
func (d *Driver) EligibleForWork() bool {
	return (d.Status == DriverAvailable || d.Status == DriverBusy) && d.HasCapacity()
}
