package api

import (
	"time"

	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

type CreateJobRequest struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	Status      string `json:"status,omitempty"`      // defaults to Applied
	AppliedDate string `json:"appliedDate,omitempty"` // defaults to now
	Notes       string `json:"notes,omitempty"`
}

// UpdateJobRequest is a partial patch: nil fields keep their stored values.
// Pointers distinguish "omitted" from "set to empty", which the store's
// update semantics otherwise cannot tell apart.
type UpdateJobRequest struct {
	Company     *string `json:"company"`
	Role        *string `json:"role"`
	Status      *string `json:"status"`
	AppliedDate *string `json:"appliedDate"`
	Notes       *string `json:"notes"`
}

type JobResponse struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	AppliedDate string `json:"appliedDate"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type ListJobsResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Jobs    []JobResponse `json:"jobs"`
}

type JobEnvelope struct {
	Success bool        `json:"success"`
	Job     JobResponse `json:"job"`
}

type StatsResponse struct {
	Success bool                `json:"success"`
	Stats   domain.StatusCounts `json:"stats"`
}

type SnapshotResponse struct {
	Counts     domain.StatusCounts `json:"counts"`
	CapturedAt string              `json:"capturedAt"`
}

type StatsHistoryResponse struct {
	Success   bool               `json:"success"`
	Count     int                `json:"count"`
	Snapshots []SnapshotResponse `json:"snapshots"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toJobResponse(app domain.Application) JobResponse {
	return JobResponse{
		ID:          app.ID.String(),
		Company:     app.Company,
		Role:        app.Role,
		Status:      string(app.Status),
		AppliedDate: formatTime(app.AppliedDate),
		Notes:       app.Notes,
		CreatedAt:   formatTime(app.CreatedAt),
		UpdatedAt:   formatTime(app.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
