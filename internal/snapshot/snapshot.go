// Package snapshot captures every owner's status counts on a cron
// schedule, building the history behind /jobs/stats/history.
//
// When several instances share a database, a Postgres advisory lock
// elects the instance that captures a given cycle: the others skip it.
// Missing a cycle is acceptable; the next one captures fresh counts.
package snapshot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

// Store provides the reads and writes a snapshot cycle needs.
type Store interface {
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
	CountByStatus(ctx context.Context, ownerID uuid.UUID) (domain.StatusCounts, error)
	InsertStatsSnapshot(ctx context.Context, snap domain.StatsSnapshot) error
}

// Locker is a non-blocking mutual exclusion primitive shared between
// instances, keyed so unrelated tasks can coexist on one database.
// The release func frees the lock on the session that acquired it and
// must be called exactly once when acquired is true.
type Locker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (release func(context.Context) error, acquired bool, err error)
}

// Schedule yields the next capture time strictly after the given time.
// robfig/cron's Schedule satisfies this.
type Schedule interface {
	Next(t time.Time) time.Time
}

// MetricsSink records snapshot metrics. All methods are fire-and-forget.
type MetricsSink interface {
	SnapshotCycleCompleted(duration time.Duration, owners int, err error)
}

type Config struct {
	Schedule Schedule
	LockKey  int64
}

type Snapshotter struct {
	config  Config
	store   Store
	locker  Locker
	metrics MetricsSink
	clock   func() time.Time
}

func New(config Config, store Store) *Snapshotter {
	return &Snapshotter{
		config: config,
		store:  store,
		clock:  time.Now,
	}
}

// WithLocker enables the cross-instance single-runner guarantee.
func (s *Snapshotter) WithLocker(locker Locker) *Snapshotter {
	s.locker = locker
	return s
}

// WithMetrics attaches a metrics sink.
func (s *Snapshotter) WithMetrics(sink MetricsSink) *Snapshotter {
	s.metrics = sink
	return s
}

// Run sleeps until each scheduled capture time and runs a cycle.
// It blocks until ctx is cancelled.
func (s *Snapshotter) Run(ctx context.Context) {
	log.Printf("snapshot: started (lock_key=%d)", s.config.LockKey)

	for {
		now := s.clock().UTC()
		next := s.config.Schedule.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("snapshot: stopped")
			return
		case <-timer.C:
			if err := s.runCycle(ctx); err != nil {
				log.Printf("snapshot: cycle error: %v", err)
			}
		}
	}
}

// runCycle captures one snapshot per owner. Per-owner failures are
// logged and skipped so one bad owner cannot starve the rest.
func (s *Snapshotter) runCycle(ctx context.Context) error {
	start := s.clock()
	capturedAt := start.UTC()

	if s.locker != nil {
		release, acquired, err := s.locker.TryAdvisoryLock(ctx, s.config.LockKey)
		if err != nil {
			return s.finishCycle(start, 0, fmt.Errorf("acquire lock: %w", err))
		}
		if !acquired {
			log.Println("snapshot: another instance holds the lock, skipping cycle")
			return s.finishCycle(start, 0, nil)
		}
		// Background context so a shutdown mid-cycle cannot strand the lock.
		defer func() {
			if err := release(context.Background()); err != nil {
				log.Printf("snapshot: release lock error: %v", err)
			}
		}()
	}

	owners, err := s.store.ListOwners(ctx)
	if err != nil {
		return s.finishCycle(start, 0, fmt.Errorf("list owners: %w", err))
	}

	captured := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			log.Printf("snapshot: cycle interrupted, captured %d/%d owners", captured, len(owners))
			return s.finishCycle(start, captured, ctx.Err())
		}

		counts, err := s.store.CountByStatus(ctx, owner)
		if err != nil {
			log.Printf("snapshot: count owner %s error: %v", owner, err)
			continue
		}

		snap := domain.StatsSnapshot{
			ID:         uuid.New(),
			OwnerID:    owner,
			Counts:     counts,
			CapturedAt: capturedAt,
		}
		if err := s.store.InsertStatsSnapshot(ctx, snap); err != nil {
			log.Printf("snapshot: insert owner %s error: %v", owner, err)
			continue
		}
		captured++
	}

	if captured > 0 {
		log.Printf("snapshot: captured %d owners", captured)
	}
	return s.finishCycle(start, captured, nil)
}

func (s *Snapshotter) finishCycle(start time.Time, owners int, err error) error {
	if s.metrics != nil {
		s.metrics.SnapshotCycleCompleted(s.clock().Sub(start), owners, err)
	}
	return err
}
