package domain

import (
	"time"

	"github.com/google/uuid"
)

type ActivityAction string

const (
	ActivityCreated ActivityAction = "created"
	ActivityUpdated ActivityAction = "updated"
	ActivityDeleted ActivityAction = "deleted"
)

// ActivityEvent records that an owner touched one of their applications.
// Events are fire-and-forget: they feed per-user activity counters and
// never influence the outcome of the request that produced them.
type ActivityEvent struct {
	ID uuid.UUID

	OwnerID       uuid.UUID
	ApplicationID uuid.UUID

	Action ActivityAction
	Status Status // status after the action; empty for deletes

	OccurredAt time.Time
}
