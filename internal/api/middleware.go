package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/logger"
	"delivery-dispatch-service/internal/platform/obs"
)

// statusWriter captures the final HTTP status code and number of bytes
// written, to distinguish "handler returned 200" from "client received a
// response".
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Record implicit 200 responses when handlers write without calling
// WriteHeader.
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// loggingMiddleware logs end-to-end request duration and response size.
func loggingMiddleware(next http.Handler, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Discard()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// A per-request id ties handler logs to the slow-operation timings
		// emitted deeper in the stack.
		reqID := uuid.NewString()
		r = r.WithContext(context.WithValue(r.Context(), obs.RequestIDKey, reqID))

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		log.WithField("req_id", reqID).
			WithField("method", r.Method).
			WithField("path", r.URL.RequestURI()).
			WithField("status", sw.status).
			WithField("bytes", sw.bytes).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}
