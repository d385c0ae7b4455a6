package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/api/dto"
	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/ports"
	"delivery-dispatch-service/internal/services"
)

type DispatchHandler struct {
	Responder
	Orders     ports.OrderStore
	Dispatcher *services.Dispatcher
}

// Dispatch assigns an existing order to a driver. This is the explicit,
// separately invokable entry point used for retrying orders whose
// assignment failed at creation time. Only pending, unassigned orders may
// be dispatched; the delivery location is the one stored on the order.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dto.DispatchRequest

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

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid order_id")
		return
	}

	order, err := h.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "order not found")
		return
	}
	if order.DriverID != nil {
		h.writeError(w, r, http.StatusConflict, "order is already assigned to a driver")
		return
	}
	if order.Status != domain.OrderPending {
		h.writeError(w, r, http.StatusConflict, "order is not pending")
		return
	}

	assignment, err := h.Dispatcher.HandleNewOrder(r.Context(), orderID, order.DeliveryLocation)
	switch {
	case errors.Is(err, services.ErrInvalidAddress):
		h.writeError(w, r, http.StatusBadRequest, "delivery_address is not a valid coordinate")
		return
	case errors.Is(err, services.ErrNoAvailableDrivers):
		h.writeError(w, r, http.StatusConflict, "no available drivers")
		return
	case err != nil:
		h.Log.WithError(err).WithField("order_id", orderID).Error("dispatch failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, r, http.StatusOK, dto.DispatchResponse{
		OrderID:               assignment.OrderID.String(),
		DriverID:              assignment.DriverID.String(),
		DeliverySequence:      assignment.DeliverySequence,
		EstimatedDeliveryTime: assignment.EstimatedDeliveryTime,
		Reassigned:            assignment.Reassigned,
	})
}
