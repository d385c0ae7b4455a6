package obs

import (
	"context"
	"time"

	"delivery-dispatch-service/internal/logger"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// Time logs the duration and outcome of an operation when the returned
// function runs, typically via defer with a pointer to the named error.
func Time(ctx context.Context, log *logger.Logger, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		entry := log.WithField("op", name).
			WithField("dur_ms", time.Since(start).Milliseconds())
		if reqID != "" {
			entry = entry.WithField("req_id", reqID)
		}

		if errp != nil && *errp != nil {
			entry.WithError(*errp).Warn("operation failed")
			return
		}
		entry.Debug("operation complete")
	}
}
