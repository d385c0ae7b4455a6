package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/api/dto"
	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/geo"
	"delivery-dispatch-service/internal/ports"
	"delivery-dispatch-service/internal/services"
)

type OrderHandler struct {
	Responder
	Orders     ports.OrderStore
	Zone       ports.ZoneProvider
	Dispatcher *services.Dispatcher
	Supplier   domain.Coordinate
}

// Create persists a new order and immediately attempts dispatch. Order
// creation succeeds even when assignment fails; the dispatch outcome rides
// along in the response so the caller can retry assignment separately.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrderRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		h.writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	location, ok := domain.ParseCoordinate(req.DeliveryAddress)
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "delivery_address is not a valid coordinate")
		return
	}

	inside, err := h.Zone.ContainsPoint(r.Context(), location)
	if err != nil {
		h.Log.WithError(err).Warn("delivery zone check failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if !inside {
		h.writeError(w, r, http.StatusUnprocessableEntity, "address is outside the delivery zone")
		return
	}

	order := &domain.Order{
		ID:               uuid.New(),
		Status:           domain.OrderPending,
		DeliveryLocation: location,
		DeliveryFee:      geo.DeliveryFee(geo.Haversine(h.Supplier, location)),
	}
	if err := h.Orders.CreateOrder(r.Context(), order); err != nil {
		h.Log.WithError(err).Error("order creation failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.OrderResponse{
		OrderID:     order.ID.String(),
		Status:      string(order.Status),
		DeliveryFee: order.DeliveryFee,
	}

	assignment, err := h.Dispatcher.HandleNewOrder(r.Context(), order.ID, location)
	if err != nil {
		// The order is already persisted; assignment failure is an
		// operational condition, not a checkout error.
		h.Log.WithError(err).WithField("order_id", order.ID).Warn("dispatch after creation failed")
		res.DispatchError = dispatchErrorMessage(err)
		h.writeJSON(w, r, http.StatusCreated, res)
		return
	}

	driverID := assignment.DriverID.String()
	res.Status = string(domain.OrderAssigned)
	res.DriverID = &driverID
	res.DeliverySequence = assignment.DeliverySequence
	res.EstimatedDeliveryTime = &assignment.EstimatedDeliveryTime
	h.writeJSON(w, r, http.StatusCreated, res)
}

// Get returns the delivery-relevant view of one order.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "order not found")
		return
	}

	res := dto.OrderResponse{
		OrderID:               order.ID.String(),
		Status:                string(order.Status),
		DeliveryFee:           order.DeliveryFee,
		DeliverySequence:      order.DeliverySequence,
		EstimatedDeliveryTime: order.EstimatedDeliveryTime,
	}
	if order.DriverID != nil {
		driverID := order.DriverID.String()
		res.DriverID = &driverID
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

func dispatchErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNoAvailableDrivers):
		return "no available drivers"
	case errors.Is(err, services.ErrInvalidAddress):
		return "invalid address"
	default:
		return "dispatch failed"
	}
}
