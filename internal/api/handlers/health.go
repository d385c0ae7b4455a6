package handlers

import (
	"encoding/json"
	"net/http"
)

// Health provides a minimal liveness check endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
