// Package activity consumes the activity event bus and records per-user
// counters in Redis. Recording is best-effort: failures are logged and
// counted, never surfaced to the request that produced the event.
package activity

import (
	"context"
	"log"
	"time"

	"github.com/kartikeysoni19/application-tracker/internal/circuitbreaker"
	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

// Write outcomes for metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped" // circuit open
)

// DefaultDrainTimeout bounds how long shutdown waits for buffered events.
const DefaultDrainTimeout = 10 * time.Second

// writeTimeout bounds a single sink write.
const writeTimeout = 3 * time.Second

// breakerTarget is the circuit breaker key for the Redis sink.
const breakerTarget = "redis"

// MetricsSink records recorder metrics. All methods are fire-and-forget.
type MetricsSink interface {
	ActivityWriteCompleted(outcome string, duration time.Duration)
}

// Recorder drains activity events into a sink.
type Recorder struct {
	sink         Sink
	breaker      *circuitbreaker.CircuitBreaker
	drainTimeout time.Duration
	metrics      MetricsSink
}

func New(sink Sink) *Recorder {
	return &Recorder{
		sink:         sink,
		drainTimeout: DefaultDrainTimeout,
	}
}

// WithBreaker guards sink writes with a circuit breaker.
func (r *Recorder) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Recorder {
	r.breaker = cb
	return r
}

// WithDrainTimeout overrides the shutdown drain timeout.
func (r *Recorder) WithDrainTimeout(d time.Duration) *Recorder {
	r.drainTimeout = d
	return r
}

// WithMetrics attaches a metrics sink.
func (r *Recorder) WithMetrics(sink MetricsSink) *Recorder {
	r.metrics = sink
	return r
}

// Run consumes events from ch until ctx is cancelled, then drains
// whatever is still buffered before returning.
func (r *Recorder) Run(ctx context.Context, ch <-chan domain.ActivityEvent) {
	log.Printf("activity: recorder started (drain_timeout=%s)", r.drainTimeout)

	for {
		select {
		case <-ctx.Done():
			r.drain(ch)
			log.Println("activity: recorder stopped")
			return
		case event := <-ch:
			r.record(context.Background(), event)
		}
	}
}

// drain processes buffered events after shutdown begins, bounded by the
// drain timeout so a dead sink cannot hold up process exit.
func (r *Recorder) drain(ch <-chan domain.ActivityEvent) {
	drainCtx, cancel := context.WithTimeout(context.Background(), r.drainTimeout)
	defer cancel()

	drained := 0
	for {
		select {
		case event := <-ch:
			r.record(drainCtx, event)
			drained++
		case <-drainCtx.Done():
			log.Printf("activity: drain timed out (%d drained, %d abandoned)", drained, len(ch))
			return
		default:
			if drained > 0 {
				log.Printf("activity: drained %d buffered events", drained)
			}
			return
		}
	}
}

func (r *Recorder) record(ctx context.Context, event domain.ActivityEvent) {
	if r.breaker != nil {
		if err := r.breaker.Allow(breakerTarget); err != nil {
			r.observe(OutcomeSkipped, 0)
			return
		}
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	start := time.Now()
	err := r.sink.Write(writeCtx, event)
	elapsed := time.Since(start)

	if err != nil {
		if r.breaker != nil {
			r.breaker.RecordFailure(breakerTarget)
		}
		r.observe(OutcomeFailed, elapsed)
		log.Printf("activity: write error: %v", err)
		return
	}

	if r.breaker != nil {
		r.breaker.RecordSuccess(breakerTarget)
	}
	r.observe(OutcomeSuccess, elapsed)
}

func (r *Recorder) observe(outcome string, duration time.Duration) {
	if r.metrics != nil {
		r.metrics.ActivityWriteCompleted(outcome, duration)
	}
}
