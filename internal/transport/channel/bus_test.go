package channel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

func newTestEvent() domain.ActivityEvent {
	return domain.ActivityEvent{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		ApplicationID: uuid.New(),
		Action:        domain.ActivityCreated,
		Status:        domain.StatusApplied,
		OccurredAt:    time.Now().UTC(),
	}
}

func TestEventBus_TryEmitAndReceive(t *testing.T) {
	bus := NewEventBus(10)
	event := newTestEvent()

	if !bus.TryEmit(event) {
		t.Fatal("TryEmit should accept event with free buffer")
	}

	select {
	case got := <-bus.Channel():
		if got.ID != event.ID {
			t.Errorf("ID = %v, want %v", got.ID, event.ID)
		}
		if got.OwnerID != event.OwnerID {
			t.Errorf("OwnerID = %v, want %v", got.OwnerID, event.OwnerID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event on channel")
	}
}

func TestEventBus_BufferFullDrops(t *testing.T) {
	bus := NewEventBus(1)

	if !bus.TryEmit(newTestEvent()) {
		t.Fatal("first TryEmit should succeed")
	}
	if bus.TryEmit(newTestEvent()) {
		t.Error("second TryEmit should report a drop on a full buffer")
	}
}

func TestEventBus_ConcurrentTryEmit(t *testing.T) {
	bus := NewEventBus(1000)

	const numGoroutines = 10
	const eventsPerGoroutine = 100

	var wg sync.WaitGroup
	var dropped atomic.Int64

	var received atomic.Int64
	done := make(chan struct{})
	go func() {
		for range bus.Channel() {
			if received.Add(1) >= numGoroutines*eventsPerGoroutine {
				close(done)
				return
			}
		}
	}()

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				if !bus.TryEmit(newTestEvent()) {
					dropped.Add(1)
				}
			}
		}()
	}

	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Logf("received %d of %d events", received.Load(), numGoroutines*eventsPerGoroutine)
	}

	if dropped.Load() > 0 {
		t.Errorf("had %d drops with oversized buffer", dropped.Load())
	}
}

// mockBusMetrics tracks calls to MetricsSink methods.
type mockBusMetrics struct {
	mu            sync.Mutex
	sizeCalls     []int
	capacityCalls []int
	droppedCalls  int
}

func (m *mockBusMetrics) ActivityBufferSizeUpdate(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizeCalls = append(m.sizeCalls, size)
}

func (m *mockBusMetrics) ActivityBufferCapacitySet(capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacityCalls = append(m.capacityCalls, capacity)
}

func (m *mockBusMetrics) ActivityEventDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.droppedCalls++
}

func TestEventBus_WithMetrics(t *testing.T) {
	metrics := &mockBusMetrics{}
	bus := NewEventBus(10, WithMetrics(metrics))

	metrics.mu.Lock()
	capCalls := len(metrics.capacityCalls)
	metrics.mu.Unlock()
	if capCalls != 1 {
		t.Errorf("ActivityBufferCapacitySet should be called once on init, got %d calls", capCalls)
	}

	bus.TryEmit(newTestEvent())

	metrics.mu.Lock()
	sizeCalls := len(metrics.sizeCalls)
	metrics.mu.Unlock()
	if sizeCalls != 1 {
		t.Errorf("ActivityBufferSizeUpdate should be called once after emit, got %d", sizeCalls)
	}
}

func TestEventBus_MetricsOnDrop(t *testing.T) {
	metrics := &mockBusMetrics{}
	bus := NewEventBus(1, WithMetrics(metrics))

	bus.TryEmit(newTestEvent())
	bus.TryEmit(newTestEvent())

	metrics.mu.Lock()
	dropped := metrics.droppedCalls
	metrics.mu.Unlock()

	if dropped != 1 {
		t.Errorf("ActivityEventDropped should be called once on full buffer, got %d", dropped)
	}
}
