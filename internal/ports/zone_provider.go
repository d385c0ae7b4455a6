package ports

import (
	"context"

	"delivery-dispatch-service/internal/domain"
)

// Port: boundary to the delivery-zone definition. The polygon changes
// rarely; implementations cache it and refresh on a long interval.
type ZoneProvider interface {
	// Polygon returns the delivery-zone boundary as an ordered ring.
	Polygon(ctx context.Context) ([]domain.Coordinate, error)
	ContainsPoint(ctx context.Context, c domain.Coordinate) (bool, error)
}
