package handlers

import (
	"net/http"

	"delivery-dispatch-service/internal/ports"
)

type CacheHandler struct {
	Responder
	Routes ports.RouteCache
}

// Stats reports route-cache hit/miss counters and entry count.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Routes.Stats(r.Context())
	if err != nil {
		h.Log.WithError(err).Error("cache stats failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, r, http.StatusOK, stats)
}

// Invalidate drops every cached route. Operational use, after road network
// or supplier changes.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.Routes.InvalidateAll(r.Context()); err != nil {
		h.Log.WithError(err).Error("cache invalidation failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "invalidated"})
}
