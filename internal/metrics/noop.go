package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserEnrolled is a no-op.
func (n *NoopRecorder) IncUserEnrolled() {}

// IncBookAdded is a no-op.
func (n *NoopRecorder) IncBookAdded() {}

// IncBookRemoved is a no-op.
func (n *NoopRecorder) IncBookRemoved() {}

// IncLoanCreated is a no-op.
func (n *NoopRecorder) IncLoanCreated() {}

// IncLoanReturned is a no-op.
func (n *NoopRecorder) IncLoanReturned() {}

// IncBookCacheHit is a no-op.
func (n *NoopRecorder) IncBookCacheHit() {}

// IncBookCacheMiss is a no-op.
func (n *NoopRecorder) IncBookCacheMiss() {}

// IncNotificationEnqueued is a no-op.
func (n *NoopRecorder) IncNotificationEnqueued(kind string) {}

// IncNotificationDelivery is a no-op.
func (n *NoopRecorder) IncNotificationDelivery(status string) {}

// ObserveNotificationDeliveryDuration is a no-op.
func (n *NoopRecorder) ObserveNotificationDeliveryDuration(duration time.Duration) {}

// SetNotificationQueueDepth is a no-op.
func (n *NoopRecorder) SetNotificationQueueDepth(depth int64) {}
