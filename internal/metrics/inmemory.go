package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersEnrolled            uint64
	BooksAdded               uint64
	BooksRemoved             uint64
	LoansCreated             uint64
	LoansReturned            uint64
	BookCacheHits            uint64
	BookCacheMisses          uint64
	NotificationsEnqueued    uint64
	NotificationSuccesses    uint64
	NotificationFailures     uint64
	NotificationDuplicates   uint64
	NotificationQueueDepth   int64
	DeliveryDurationCount    uint64
	DeliveryDurationTotalNs  int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	usersEnrolled           uint64
	booksAdded              uint64
	booksRemoved            uint64
	loansCreated            uint64
	loansReturned           uint64
	bookCacheHits           uint64
	bookCacheMisses         uint64
	notificationsEnqueued   uint64
	notificationSuccesses   uint64
	notificationFailures    uint64
	notificationDuplicates  uint64
	notificationQueueDepth  int64
	deliveryDurationCount   uint64
	deliveryDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersEnrolled:           atomic.LoadUint64(&m.usersEnrolled),
		BooksAdded:              atomic.LoadUint64(&m.booksAdded),
		BooksRemoved:            atomic.LoadUint64(&m.booksRemoved),
		LoansCreated:            atomic.LoadUint64(&m.loansCreated),
		LoansReturned:           atomic.LoadUint64(&m.loansReturned),
		BookCacheHits:           atomic.LoadUint64(&m.bookCacheHits),
		BookCacheMisses:         atomic.LoadUint64(&m.bookCacheMisses),
		NotificationsEnqueued:   atomic.LoadUint64(&m.notificationsEnqueued),
		NotificationSuccesses:   atomic.LoadUint64(&m.notificationSuccesses),
		NotificationFailures:    atomic.LoadUint64(&m.notificationFailures),
		NotificationDuplicates:  atomic.LoadUint64(&m.notificationDuplicates),
		NotificationQueueDepth:  atomic.LoadInt64(&m.notificationQueueDepth),
		DeliveryDurationCount:   atomic.LoadUint64(&m.deliveryDurationCount),
		DeliveryDurationTotalNs: atomic.LoadInt64(&m.deliveryDurationTotalNs),
	}
}

// IncUserEnrolled increments the enrollment counter.
func (m *InMemoryRecorder) IncUserEnrolled() {
	atomic.AddUint64(&m.usersEnrolled, 1)
}

// IncBookAdded increments the book-added counter.
func (m *InMemoryRecorder) IncBookAdded() {
	atomic.AddUint64(&m.booksAdded, 1)
}

// IncBookRemoved increments the book-removed counter.
func (m *InMemoryRecorder) IncBookRemoved() {
	atomic.AddUint64(&m.booksRemoved, 1)
}

// IncLoanCreated increments the loan counter.
func (m *InMemoryRecorder) IncLoanCreated() {
	atomic.AddUint64(&m.loansCreated, 1)
}

// IncLoanReturned increments the return counter.
func (m *InMemoryRecorder) IncLoanReturned() {
	atomic.AddUint64(&m.loansReturned, 1)
}

// IncBookCacheHit increments the cache hit counter.
func (m *InMemoryRecorder) IncBookCacheHit() {
	atomic.AddUint64(&m.bookCacheHits, 1)
}

// IncBookCacheMiss increments the cache miss counter.
func (m *InMemoryRecorder) IncBookCacheMiss() {
	atomic.AddUint64(&m.bookCacheMisses, 1)
}

// IncNotificationEnqueued increments the outbox enqueue counter.
func (m *InMemoryRecorder) IncNotificationEnqueued(kind string) {
	atomic.AddUint64(&m.notificationsEnqueued, 1)
}

// IncNotificationDelivery increments delivery outcome counters.
func (m *InMemoryRecorder) IncNotificationDelivery(status string) {
	switch status {
	case "success":
		atomic.AddUint64(&m.notificationSuccesses, 1)
	case "duplicate":
		atomic.AddUint64(&m.notificationDuplicates, 1)
	default:
		atomic.AddUint64(&m.notificationFailures, 1)
	}
}

// ObserveNotificationDeliveryDuration records a delivery duration.
func (m *InMemoryRecorder) ObserveNotificationDeliveryDuration(duration time.Duration) {
	atomic.AddUint64(&m.deliveryDurationCount, 1)
	atomic.AddInt64(&m.deliveryDurationTotalNs, duration.Nanoseconds())
}

// SetNotificationQueueDepth records the current outbox depth.
func (m *InMemoryRecorder) SetNotificationQueueDepth(depth int64) {
	atomic.StoreInt64(&m.notificationQueueDepth, depth)
}
