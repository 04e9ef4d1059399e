package handler

import (
	"fmt"
	"net/http"

	"github.com/lendr/lendr/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "lendr_users_enrolled_total %d\n", snap.UsersEnrolled)
	writeMetric(w, "lendr_books_added_total %d\n", snap.BooksAdded)
	writeMetric(w, "lendr_books_removed_total %d\n", snap.BooksRemoved)
	writeMetric(w, "lendr_loans_created_total %d\n", snap.LoansCreated)
	writeMetric(w, "lendr_loans_returned_total %d\n", snap.LoansReturned)

	writeMetric(w, "lendr_book_cache_hits_total %d\n", snap.BookCacheHits)
	writeMetric(w, "lendr_book_cache_misses_total %d\n", snap.BookCacheMisses)

	writeMetric(w, "lendr_notifications_enqueued_total %d\n", snap.NotificationsEnqueued)
	writeMetric(w, "lendr_notification_deliveries_total{status=\"success\"} %d\n", snap.NotificationSuccesses)
	writeMetric(w, "lendr_notification_deliveries_total{status=\"failed\"} %d\n", snap.NotificationFailures)
	writeMetric(w, "lendr_notification_deliveries_total{status=\"duplicate\"} %d\n", snap.NotificationDuplicates)
	writeMetric(w, "lendr_notification_queue_depth %d\n", snap.NotificationQueueDepth)
	writeMetric(w, "lendr_notification_delivery_duration_seconds_count %d\n", snap.DeliveryDurationCount)
	writeMetric(w, "lendr_notification_delivery_duration_seconds_sum %.6f\n", float64(snap.DeliveryDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
