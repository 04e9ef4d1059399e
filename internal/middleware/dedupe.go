package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lendr/lendr/internal/metrics"
)

// DeliveryIDHeader is the idempotency key header stamped on mirror
// traffic by the sending service's outbox worker. The value here must
// stay in sync with notify.HeaderDeliveryID.
const DeliveryIDHeader = "X-Lendr-Delivery-Id"

// DeliveryStore records delivery ids so each one is applied at most
// once. Satisfied by *cache.Cache.
type DeliveryStore interface {
	FirstDelivery(ctx context.Context, deliveryID string) (bool, error)
	ReleaseDelivery(ctx context.Context, deliveryID string) error
}

// Dedupe short-circuits redelivered cross-service notifications. The
// sender retries until it sees a 2xx, so a delivery id can arrive more
// than once; only the first occurrence may mutate state. Requests
// without the header (ordinary client traffic) pass straight through.
//
// The id is claimed before the handler runs, which keeps concurrent
// redeliveries out, but a claim only sticks if the handler succeeds: on
// a non-2xx response the id is released again so the sender's retry is
// applied rather than swallowed as a duplicate.
//
// The check fails open: if Redis is unreachable the request proceeds,
// trading a possible duplicate mirror row for availability.
func Dedupe(store DeliveryStore, recorder metrics.Recorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deliveryID := r.Header.Get(DeliveryIDHeader)
			if deliveryID == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			first, err := store.FirstDelivery(r.Context(), deliveryID)
			if err != nil {
				logger.Warn("delivery dedupe check failed",
					"delivery_id", deliveryID,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			if !first {
				logger.Info("duplicate delivery ignored", "delivery_id", deliveryID)
				if recorder != nil {
					recorder.IncNotificationDelivery("duplicate")
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"status":"duplicate"}`))
				return
			}

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			if wrapped.status < 200 || wrapped.status >= 300 {
				if err := store.ReleaseDelivery(r.Context(), deliveryID); err != nil {
					logger.Warn("failed to release delivery id",
						"delivery_id", deliveryID,
						"status_code", wrapped.status,
						"error", err,
					)
				}
			}
		})
	}
}
