package handlers

import (
	"encoding/json"
	"net/http"

	"delivery-dispatch-service/internal/logger"
)

// Responder bundles the response helpers with the request logger. Handler
// structs embed it.
type Responder struct {
	Log *logger.Logger
}

func (rp Responder) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && rp.Log != nil {
		rp.Log.WithError(err).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			Warn("response encode failed")
	}
}

func (rp Responder) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	rp.writeJSON(w, r, status, map[string]string{"error": msg})
}
