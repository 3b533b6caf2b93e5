package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatsSnapshot is one owner's status counts captured at a point in time.
// Snapshots back the /jobs/stats/history trend view.
type StatsSnapshot struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	Counts StatusCounts

	CapturedAt time.Time
}
