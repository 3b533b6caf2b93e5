// Package channel provides a bounded in-memory bus for activity events.
//
// Producers (the API handler) must never block on a slow consumer, so the
// bus offers TryEmit: when the buffer is full the event is dropped and
// counted. Request handling always wins over activity bookkeeping.
package channel

import (
	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

// MetricsSink records bus metrics. All methods are fire-and-forget.
type MetricsSink interface {
	ActivityBufferSizeUpdate(size int)
	ActivityBufferCapacitySet(capacity int)
	ActivityEventDropped()
}

type Option func(*EventBus)

// WithMetrics attaches a metrics sink to the bus.
func WithMetrics(sink MetricsSink) Option {
	return func(b *EventBus) {
		b.metrics = sink
	}
}

type EventBus struct {
	ch      chan domain.ActivityEvent
	metrics MetricsSink
}

func NewEventBus(buffer int, opts ...Option) *EventBus {
	b := &EventBus{
		ch: make(chan domain.ActivityEvent, buffer),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics != nil {
		b.metrics.ActivityBufferCapacitySet(buffer)
	}
	return b
}

// TryEmit enqueues the event without blocking.
// Returns false if the buffer is full; the event is dropped.
func (b *EventBus) TryEmit(event domain.ActivityEvent) bool {
	select {
	case b.ch <- event:
		if b.metrics != nil {
			b.metrics.ActivityBufferSizeUpdate(len(b.ch))
		}
		return true
	default:
		if b.metrics != nil {
			b.metrics.ActivityEventDropped()
		}
		return false
	}
}

// Channel exposes the consumer side of the bus.
func (b *EventBus) Channel() <-chan domain.ActivityEvent {
	return b.ch
}
