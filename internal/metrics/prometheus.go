package metrics

import (
	"log"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// API metrics
	requestsTotal           *prometheus.CounterVec
	requestDuration         *prometheus.HistogramVec
	authFailuresTotal       prometheus.Counter
	ownershipDenialsTotal   prometheus.Counter
	validationFailuresTotal prometheus.Counter

	// Activity pipeline metrics
	activityBufferSize     prometheus.Gauge
	activityBufferCapacity prometheus.Gauge
	activityDroppedTotal   prometheus.Counter
	activityWritesTotal    *prometheus.CounterVec
	activityWriteDuration  prometheus.Histogram

	// Snapshot metrics
	snapshotCyclesTotal      prometheus.Counter
	snapshotCycleErrorsTotal prometheus.Counter
	snapshotOwnersCaptured   prometheus.Gauge
	snapshotCycleDuration    prometheus.Histogram
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initAPIMetrics(reg)
	s.initActivityMetrics(reg)
	s.initSnapshotMetrics(reg)
	return s
}

func (s *PrometheusSink) initAPIMetrics(reg prometheus.Registerer) {
	s.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apptrack_http_requests_total",
		Help: "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	s.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apptrack_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"route"})

	s.authFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apptrack_auth_failures_total",
		Help: "Total number of requests rejected for missing or unknown tokens.",
	})

	s.ownershipDenialsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apptrack_ownership_denials_total",
		Help: "Total number of requests rejected because the record belongs to another user.",
	})

	s.validationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apptrack_validation_failures_total",
		Help: "Total number of requests rejected by field validation.",
	})

	s.register(reg, s.requestsTotal, "apptrack_http_requests_total")
	s.register(reg, s.requestDuration, "apptrack_http_request_duration_seconds")
	s.register(reg, s.authFailuresTotal, "apptrack_auth_failures_total")
	s.register(reg, s.ownershipDenialsTotal, "apptrack_ownership_denials_total")
	s.register(reg, s.validationFailuresTotal, "apptrack_validation_failures_total")
}

func (s *PrometheusSink) initActivityMetrics(reg prometheus.Registerer) {
	s.activityBufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apptrack_activity_buffer_size",
		Help: "Current number of events in the activity buffer.",
	})
	s.activityBufferCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apptrack_activity_buffer_capacity",
		Help: "Configured capacity of the activity buffer.",
	})
	s.activityDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apptrack_activity_events_dropped_total",
		Help: "Total number of activity events dropped due to a full buffer.",
	})
	s.activityWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apptrack_activity_writes_total",
		Help: "Total number of activity sink writes by outcome.",
	}, []string{"outcome"})
	s.activityWriteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "apptrack_activity_write_duration_seconds",
		Help:    "Activity sink write latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	s.register(reg, s.activityBufferSize, "apptrack_activity_buffer_size")
	s.register(reg, s.activityBufferCapacity, "apptrack_activity_buffer_capacity")
	s.register(reg, s.activityDroppedTotal, "apptrack_activity_events_dropped_total")
	s.register(reg, s.activityWritesTotal, "apptrack_activity_writes_total")
	s.register(reg, s.activityWriteDuration, "apptrack_activity_write_duration_seconds")
}

func (s *PrometheusSink) initSnapshotMetrics(reg prometheus.Registerer) {
	s.snapshotCyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apptrack_snapshot_cycles_total",
		Help: "Total number of stats snapshot cycles run.",
	})
	s.snapshotCycleErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apptrack_snapshot_cycle_errors_total",
		Help: "Total number of stats snapshot cycles that ended in error.",
	})
	s.snapshotOwnersCaptured = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apptrack_snapshot_owners_captured",
		Help: "Number of owners captured in the most recent snapshot cycle.",
	})
	s.snapshotCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "apptrack_snapshot_cycle_duration_seconds",
		Help:    "Duration of each stats snapshot cycle in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	s.register(reg, s.snapshotCyclesTotal, "apptrack_snapshot_cycles_total")
	s.register(reg, s.snapshotCycleErrorsTotal, "apptrack_snapshot_cycle_errors_total")
	s.register(reg, s.snapshotOwnersCaptured, "apptrack_snapshot_owners_captured")
	s.register(reg, s.snapshotCycleDuration, "apptrack_snapshot_cycle_duration_seconds")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// API metrics implementation

func (s *PrometheusSink) RequestCompleted(method, route string, status int, duration time.Duration) {
	s.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (s *PrometheusSink) AuthFailure() {
	s.authFailuresTotal.Inc()
}

func (s *PrometheusSink) OwnershipDenied() {
	s.ownershipDenialsTotal.Inc()
}

func (s *PrometheusSink) ValidationFailure() {
	s.validationFailuresTotal.Inc()
}

// Activity pipeline metrics implementation

func (s *PrometheusSink) ActivityBufferSizeUpdate(size int) {
	s.activityBufferSize.Set(float64(size))
}

func (s *PrometheusSink) ActivityBufferCapacitySet(capacity int) {
	s.activityBufferCapacity.Set(float64(capacity))
}

func (s *PrometheusSink) ActivityEventDropped() {
	s.activityDroppedTotal.Inc()
}

func (s *PrometheusSink) ActivityWriteCompleted(outcome string, duration time.Duration) {
	s.activityWritesTotal.WithLabelValues(outcome).Inc()
	s.activityWriteDuration.Observe(duration.Seconds())
}

// Snapshot metrics implementation

func (s *PrometheusSink) SnapshotCycleCompleted(duration time.Duration, owners int, err error) {
	s.snapshotCyclesTotal.Inc()
	s.snapshotCycleDuration.Observe(duration.Seconds())
	s.snapshotOwnersCaptured.Set(float64(owners))
	if err != nil {
		s.snapshotCycleErrorsTotal.Inc()
	}
}
