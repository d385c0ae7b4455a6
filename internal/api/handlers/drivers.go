package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/adapters/cache"
	"delivery-dispatch-service/internal/adapters/distance"
	"delivery-dispatch-service/internal/api/dto"
	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/ports"
)

type DriverHandler struct {
	Responder
	Drivers ports.DriverStore
	Orders  ports.OrderStore
	// GeoIndex may be nil when Redis is not configured; nearby queries then
	// answer 503.
	GeoIndex *cache.RedisGeoIndex
}

// Route returns the driver's current planned route with a ready-made
// navigation link.
func (h *DriverHandler) Route(w http.ResponseWriter, r *http.Request) {
	driverID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid driver id")
		return
	}

	route, err := h.Drivers.GetDriverRoute(r.Context(), driverID)
	if err != nil {
		h.Log.WithError(err).WithField("driver_id", driverID).Error("route lookup failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if route == nil {
		h.writeError(w, r, http.StatusNotFound, "driver has no route")
		return
	}

	orders, err := h.Orders.OrdersForDriver(r.Context(), driverID, domain.InFlightStatuses)
	if err != nil {
		h.Log.WithError(err).WithField("driver_id", driverID).Error("order lookup failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	locations := make(map[uuid.UUID]domain.Coordinate, len(orders))
	for _, o := range orders {
		locations[o.ID] = o.DeliveryLocation
	}

	res := dto.RouteResponse{
		DriverID:        route.DriverID.String(),
		RouteSequence:   make([]string, 0, len(route.RouteSequence)),
		Coordinates:     make([]dto.PointResponse, 0, len(route.RouteData.Coordinates)),
		LegDistances:    route.RouteData.Distances,
		LegDurations:    route.RouteData.Durations,
		TotalDistanceKm: route.TotalDistanceKm,
		DurationMinutes: route.DurationMinutes,
		Supplier:        dto.PointResponse{Lon: route.SupplierLocation.Lon, Lat: route.SupplierLocation.Lat},
		UpdatedAt:       route.UpdatedAt,
	}

	stops := make([]domain.Coordinate, 0, len(route.RouteSequence))
	for _, id := range route.RouteSequence {
		res.RouteSequence = append(res.RouteSequence, id.String())
		if loc, ok := locations[id]; ok {
			stops = append(stops, loc)
		}
	}
	res.NavigationURL = distance.NavigationURL(route.SupplierLocation, stops)

	for _, c := range route.RouteData.Coordinates {
		res.Coordinates = append(res.Coordinates, dto.PointResponse{Lon: c.Lon, Lat: c.Lat})
	}

	h.writeJSON(w, r, http.StatusOK, res)
}

// UpdateLocation ingests a position report over HTTP. Drivers without the
// streaming feed post here directly.
func (h *DriverHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	driverID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid driver id")
		return
	}

	var req dto.UpdateLocationRequest
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

	loc := domain.Coordinate{Lon: req.Lon, Lat: req.Lat}
	if !loc.Valid() {
		h.writeError(w, r, http.StatusBadRequest, "coordinate out of range")
		return
	}

	if err := h.Drivers.UpdateLocation(r.Context(), driverID, loc, time.Now()); err != nil {
		h.writeError(w, r, http.StatusNotFound, "driver not found")
		return
	}

	if h.GeoIndex != nil {
		if err := h.GeoIndex.UpdateLocation(r.Context(), driverID, loc); err != nil {
			h.Log.WithError(err).WithField("driver_id", driverID).Warn("geo index update failed")
		}
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

// Nearby lists drivers within a radius of a point, closest first.
func (h *DriverHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	if h.GeoIndex == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "driver location index not configured")
		return
	}

	q := r.URL.Query()
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	if errLon != nil || errLat != nil {
		h.writeError(w, r, http.StatusBadRequest, "lon and lat query parameters are required")
		return
	}
	center := domain.Coordinate{Lon: lon, Lat: lat}
	if !center.Valid() {
		h.writeError(w, r, http.StatusBadRequest, "coordinate out of range")
		return
	}

	radiusKm := 5.0
	if raw := q.Get("radius_km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 50 {
			h.writeError(w, r, http.StatusBadRequest, "radius_km must be in (0, 50]")
			return
		}
		radiusKm = v
	}

	hits, err := h.GeoIndex.NearbyDrivers(r.Context(), center, radiusKm, 20)
	if err != nil {
		h.Log.WithError(err).Error("nearby driver query failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.NearbyDriversResponse{Drivers: make([]dto.NearbyDriverResponse, 0, len(hits))}
	for _, hit := range hits {
		res.Drivers = append(res.Drivers, dto.NearbyDriverResponse{
			DriverID:   hit.DriverID.String(),
			Location:   dto.PointResponse{Lon: hit.Location.Lon, Lat: hit.Location.Lat},
			DistanceKm: hit.DistanceKm,
		})
	}
	h.writeJSON(w, r, http.StatusOK, res)
}
