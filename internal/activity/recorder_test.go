package activity

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kartikeysoni19/application-tracker/internal/circuitbreaker"
	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

type fakeSink struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
	err    error
}

func (s *fakeSink) Write(ctx context.Context, event domain.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newEvent(action domain.ActivityAction) domain.ActivityEvent {
	return domain.ActivityEvent{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		ApplicationID: uuid.New(),
		Action:        action,
		OccurredAt:    time.Now().UTC(),
	}
}

func TestRecorder_WritesEvents(t *testing.T) {
	sink := &fakeSink{}
	recorder := New(sink)

	ch := make(chan domain.ActivityEvent, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		recorder.Run(ctx, ch)
		close(done)
	}()

	ch <- newEvent(domain.ActivityCreated)
	ch <- newEvent(domain.ActivityDeleted)

	deadline := time.After(2 * time.Second)
	for sink.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timeout: recorded %d of 2 events", sink.count())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop after cancel")
	}
}

func TestRecorder_DrainsBufferedEventsOnShutdown(t *testing.T) {
	sink := &fakeSink{}
	recorder := New(sink).WithDrainTimeout(time.Second)

	ch := make(chan domain.ActivityEvent, 10)
	for i := 0; i < 5; i++ {
		ch <- newEvent(domain.ActivityUpdated)
	}

	// Context already cancelled: Run should still drain the buffer.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		recorder.Run(ctx, ch)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("recorder did not finish draining")
	}

	if sink.count() != 5 {
		t.Errorf("drained %d events, want 5", sink.count())
	}
}

// stuckSink blocks every write until its context expires, so a drain can
// only end by timing out.
type stuckSink struct{}

func (stuckSink) Write(ctx context.Context, event domain.ActivityEvent) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRecorder_DrainTimeoutLoggedWithAbandonedCount(t *testing.T) {
	recorder := New(stuckSink{}).WithDrainTimeout(time.Millisecond)

	ch := make(chan domain.ActivityEvent, 4)
	for i := 0; i < 4; i++ {
		ch <- newEvent(domain.ActivityCreated)
	}

	var buf bytes.Buffer
	original := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(original)

	recorder.drain(ch)

	if !strings.Contains(buf.String(), "drain timed out") {
		t.Errorf("expired drain must be logged even when nothing drained, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "abandoned") {
		t.Errorf("drain timeout log should report abandoned events, got %q", buf.String())
	}
}

func TestRecorder_BreakerSkipsWhenOpen(t *testing.T) {
	sink := &fakeSink{err: errors.New("connection refused")}
	cb := circuitbreaker.New(1, time.Hour)
	metrics := &recordingMetrics{}
	recorder := New(sink).WithBreaker(cb).WithMetrics(metrics)

	// First write fails and opens the circuit.
	recorder.record(context.Background(), newEvent(domain.ActivityCreated))
	// Second write is skipped without touching the sink.
	recorder.record(context.Background(), newEvent(domain.ActivityCreated))

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.outcomes[OutcomeFailed] != 1 {
		t.Errorf("failed = %d, want 1", metrics.outcomes[OutcomeFailed])
	}
	if metrics.outcomes[OutcomeSkipped] != 1 {
		t.Errorf("skipped = %d, want 1", metrics.outcomes[OutcomeSkipped])
	}
}

func TestRecorder_SuccessClosesBreaker(t *testing.T) {
	sink := &fakeSink{}
	cb := circuitbreaker.New(3, time.Hour)
	recorder := New(sink).WithBreaker(cb)

	recorder.record(context.Background(), newEvent(domain.ActivityCreated))

	if err := cb.Allow("redis"); err != nil {
		t.Errorf("breaker should stay closed after success: %v", err)
	}
	if sink.count() != 1 {
		t.Errorf("recorded %d events, want 1", sink.count())
	}
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (m *recordingMetrics) ActivityWriteCompleted(outcome string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]int)
	}
	m.outcomes[outcome]++
}

func TestBuildKey_DayBucketed(t *testing.T) {
	owner := "11111111-1111-1111-1111-111111111111"
	at := time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC)

	got := buildKey(owner, domain.ActivityCreated, at)
	want := "u:11111111-1111-1111-1111-111111111111:a:created:d:20240510"
	if got != want {
		t.Errorf("buildKey = %q, want %q", got, want)
	}
}
