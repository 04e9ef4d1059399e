// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Catalogue metrics
	IncUserEnrolled()
	IncBookAdded()
	IncBookRemoved()
	IncLoanCreated()
	IncLoanReturned()

	// Book lookup cache metrics
	IncBookCacheHit()
	IncBookCacheMiss()

	// Cross-service notification metrics. "success", "failed" and
	// "exhausted" come from the sending worker; "duplicate" comes from
	// the receiving side's dedupe check.
	IncNotificationEnqueued(kind string)
	IncNotificationDelivery(status string) // status: "success", "failed", "exhausted", "duplicate"
	ObserveNotificationDeliveryDuration(duration time.Duration)
	SetNotificationQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
