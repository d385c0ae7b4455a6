package handlers

import (
	"net/http"
	"strconv"

	"delivery-dispatch-service/internal/api/dto"
	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/geo"
	"delivery-dispatch-service/internal/ports"
)

type ZoneHandler struct {
	Responder
	Zone     ports.ZoneProvider
	Supplier domain.Coordinate
}

// Polygon returns the delivery-zone boundary ring.
func (h *ZoneHandler) Polygon(w http.ResponseWriter, r *http.Request) {
	ring, err := h.Zone.Polygon(r.Context())
	if err != nil {
		h.Log.WithError(err).Error("zone polygon lookup failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ZoneResponse{Polygon: make([]dto.PointResponse, 0, len(ring))}
	for _, c := range ring {
		res.Polygon = append(res.Polygon, dto.PointResponse{Lon: c.Lon, Lat: c.Lat})
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

// Contains answers whether a point is inside the delivery zone.
func (h *ZoneHandler) Contains(w http.ResponseWriter, r *http.Request) {
	c, ok := parsePointQuery(r)
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "lon and lat query parameters are required")
		return
	}

	inside, err := h.Zone.ContainsPoint(r.Context(), c)
	if err != nil {
		h.Log.WithError(err).Error("zone containment check failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, r, http.StatusOK, dto.ZoneContainsResponse{Contains: inside})
}

// FeeQuote prices a delivery. Accepts either km directly or a lon/lat
// point measured straight-line from the supplier.
func (h *ZoneHandler) FeeQuote(w http.ResponseWriter, r *http.Request) {
	var km float64
	if raw := r.URL.Query().Get("km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			h.writeError(w, r, http.StatusBadRequest, "km must be a non-negative number")
			return
		}
		km = v
	} else {
		c, ok := parsePointQuery(r)
		if !ok {
			h.writeError(w, r, http.StatusBadRequest, "km or lon and lat query parameters are required")
			return
		}
		km = geo.Haversine(h.Supplier, c)
	}
	h.writeJSON(w, r, http.StatusOK, dto.FeeQuoteResponse{
		DistanceKm: km,
		Fee:        geo.DeliveryFee(km),
	})
}

func parsePointQuery(r *http.Request) (domain.Coordinate, bool) {
	q := r.URL.Query()
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	if errLon != nil || errLat != nil {
		return domain.Coordinate{}, false
	}
	c := domain.Coordinate{Lon: lon, Lat: lat}
	return c, c.Valid()
}
