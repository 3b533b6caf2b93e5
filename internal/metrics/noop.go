package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) RequestCompleted(method, route string, status int, d time.Duration) {}
func (n *NoopSink) AuthFailure()                                                       {}
func (n *NoopSink) OwnershipDenied()                                                   {}
func (n *NoopSink) ValidationFailure()                                                 {}
func (n *NoopSink) ActivityBufferSizeUpdate(size int)                                  {}
func (n *NoopSink) ActivityBufferCapacitySet(capacity int)                             {}
func (n *NoopSink) ActivityEventDropped()                                              {}
func (n *NoopSink) ActivityWriteCompleted(outcome string, duration time.Duration)      {}
func (n *NoopSink) SnapshotCycleCompleted(duration time.Duration, owners int, err error) {
}
