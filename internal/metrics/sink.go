package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate
// errors. If the metrics backend is unavailable, implementations log warnings
// and continue.
type Sink interface {
	// API metrics
	RequestCompleted(method, route string, status int, duration time.Duration)
	AuthFailure()
	OwnershipDenied()
	ValidationFailure()

	// Activity pipeline metrics
	ActivityBufferSizeUpdate(size int)
	ActivityBufferCapacitySet(capacity int)
	ActivityEventDropped()
	ActivityWriteCompleted(outcome string, duration time.Duration)

	// Snapshot metrics
	SnapshotCycleCompleted(duration time.Duration, owners int, err error)
}
