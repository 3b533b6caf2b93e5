package domain

import (
	"time"

	"github.com/google/uuid"
)

// Field length limits enforced at write time.
const (
	MaxCompanyLen = 100
	MaxRoleLen    = 100
	MaxNotesLen   = 500
)

// Application is a single job application owned by exactly one user.
type Application struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	Company string
	Role    string
	Status  Status
	Notes   string

	AppliedDate time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter narrows a listing to a status and/or a substring search.
// Zero values mean "no filter".
type Filter struct {
	// Status filters to an exact status. Empty or "All" disables the filter.
	Status string

	// Search matches case-insensitively as a substring against company OR role.
	Search string
}

// FiltersByStatus reports whether the status filter is active.
// The literal "All" is a sentinel for no filtering.
func (f Filter) FiltersByStatus() bool {
	return f.Status != "" && f.Status != "All"
}
