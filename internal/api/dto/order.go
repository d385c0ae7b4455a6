package dto

import (
	"encoding/json"
	"time"
)

// DeliveryAddress is accepted in any of the supported coordinate forms:
// GeoJSON Point, WKT, hex-encoded binary geometry, or a [lon, lat] pair.
type CreateOrderRequest struct {
	DeliveryAddress json.RawMessage `json:"delivery_address"`
}

type OrderResponse struct {
	OrderID               string     `json:"order_id"`
	Status                string     `json:"status"`
	DriverID              *string    `json:"driver_id"`
	DeliveryFee           int        `json:"delivery_fee"`
	DeliverySequence      int        `json:"delivery_sequence,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
	// DispatchError carries the assignment failure, if any. Order creation
	// succeeds even when no driver could be assigned.
	DispatchError string `json:"dispatch_error,omitempty"`
}

// DispatchRequest retries assignment of a persisted order. The delivery
// location comes from the stored order, not the caller.
type DispatchRequest struct {
	OrderID string `json:"order_id"`
}

type DispatchResponse struct {
	OrderID               string    `json:"order_id"`
	DriverID              string    `json:"driver_id"`
	DeliverySequence      int       `json:"delivery_sequence"`
	EstimatedDeliveryTime time.Time `json:"estimated_delivery_time"`
	Reassigned            bool      `json:"reassigned"`
}
