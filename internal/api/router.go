package api

import (
	"net/http"

	"delivery-dispatch-service/internal/adapters/cache"
	"delivery-dispatch-service/internal/api/handlers"
	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/logger"
	"delivery-dispatch-service/internal/ports"
	"delivery-dispatch-service/internal/services"
)

// Deps carries everything the HTTP surface needs. Handlers stay unaware of
// concrete adapters; only the composition root sees both sides.
type Deps struct {
	Dispatcher *services.Dispatcher
	Orders     ports.OrderStore
	Drivers    ports.DriverStore
	Zone       ports.ZoneProvider
	RouteCache ports.RouteCache
	GeoIndex   *cache.RedisGeoIndex
	Supplier   domain.Coordinate
	Log        *logger.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	rp := handlers.Responder{Log: deps.Log}
	orderHandler := &handlers.OrderHandler{
		Responder:  rp,
		Orders:     deps.Orders,
		Zone:       deps.Zone,
		Dispatcher: deps.Dispatcher,
		Supplier:   deps.Supplier,
	}
	dispatchHandler := &handlers.DispatchHandler{Responder: rp, Orders: deps.Orders, Dispatcher: deps.Dispatcher}
	driverHandler := &handlers.DriverHandler{
		Responder: rp,
		Drivers:   deps.Drivers,
		Orders:    deps.Orders,
		GeoIndex:  deps.GeoIndex,
	}
	zoneHandler := &handlers.ZoneHandler{Responder: rp, Zone: deps.Zone, Supplier: deps.Supplier}
	cacheHandler := &handlers.CacheHandler{Responder: rp, Routes: deps.RouteCache}

	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("POST /orders", orderHandler.Create)
	mux.HandleFunc("GET /orders/{id}", orderHandler.Get)
	mux.HandleFunc("POST /dispatch", dispatchHandler.Dispatch)

	mux.HandleFunc("GET /drivers/{id}/route", driverHandler.Route)
	mux.HandleFunc("POST /drivers/{id}/location", driverHandler.UpdateLocation)
	mux.HandleFunc("GET /drivers/nearby", driverHandler.Nearby)

	mux.HandleFunc("GET /zone", zoneHandler.Polygon)
	mux.HandleFunc("GET /zone/contains", zoneHandler.Contains)
	mux.HandleFunc("GET /fees", zoneHandler.FeeQuote)

	mux.HandleFunc("GET /cache/stats", cacheHandler.Stats)
	mux.HandleFunc("DELETE /cache/routes", cacheHandler.Invalidate)

	return loggingMiddleware(mux, deps.Log)
}
