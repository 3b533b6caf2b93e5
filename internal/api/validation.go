package api

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

// FieldError is a user-correctable validation failure naming the field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// dateLayouts accepted for appliedDate, tried in order.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("must be RFC3339 or YYYY-MM-DD")
}

func validateCompany(company string) error {
	if company == "" {
		return FieldError{Field: "company", Message: "is required"}
	}
	// Caps count characters, matching the varchar column widths.
	if utf8.RuneCountInString(company) > domain.MaxCompanyLen {
		return FieldError{Field: "company", Message: fmt.Sprintf("cannot exceed %d characters", domain.MaxCompanyLen)}
	}
	return nil
}

func validateRole(role string) error {
	if role == "" {
		return FieldError{Field: "role", Message: "is required"}
	}
	if utf8.RuneCountInString(role) > domain.MaxRoleLen {
		return FieldError{Field: "role", Message: fmt.Sprintf("cannot exceed %d characters", domain.MaxRoleLen)}
	}
	return nil
}

func validateStatus(status string) error {
	if !domain.Status(status).IsValid() {
		return FieldError{Field: "status", Message: "must be one of Applied, Interview, Offer, Rejected"}
	}
	return nil
}

func validateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > domain.MaxNotesLen {
		return FieldError{Field: "notes", Message: fmt.Sprintf("cannot exceed %d characters", domain.MaxNotesLen)}
	}
	return nil
}

// buildApplication validates a create request and assembles the record.
// Missing status defaults to Applied; missing appliedDate defaults to now.
func buildApplication(req CreateJobRequest, now time.Time) (domain.Application, error) {
	app := domain.Application{
		Company: strings.TrimSpace(req.Company),
		Role:    strings.TrimSpace(req.Role),
		Notes:   req.Notes,
	}

	if err := validateCompany(app.Company); err != nil {
		return domain.Application{}, err
	}
	if err := validateRole(app.Role); err != nil {
		return domain.Application{}, err
	}
	if err := validateNotes(app.Notes); err != nil {
		return domain.Application{}, err
	}

	app.Status = domain.StatusApplied
	if req.Status != "" {
		if err := validateStatus(req.Status); err != nil {
			return domain.Application{}, err
		}
		app.Status = domain.Status(req.Status)
	}

	app.AppliedDate = now
	if req.AppliedDate != "" {
		d, err := parseDate(req.AppliedDate)
		if err != nil {
			return domain.Application{}, FieldError{Field: "appliedDate", Message: err.Error()}
		}
		app.AppliedDate = d
	}

	return app, nil
}

// applyUpdate validates a patch request and merges it onto the stored
// record. Omitted (nil) fields keep their stored values.
func applyUpdate(app domain.Application, req UpdateJobRequest) (domain.Application, error) {
	if req.Company != nil {
		app.Company = strings.TrimSpace(*req.Company)
		if err := validateCompany(app.Company); err != nil {
			return domain.Application{}, err
		}
	}
	if req.Role != nil {
		app.Role = strings.TrimSpace(*req.Role)
		if err := validateRole(app.Role); err != nil {
			return domain.Application{}, err
		}
	}
	if req.Status != nil {
		if err := validateStatus(*req.Status); err != nil {
			return domain.Application{}, err
		}
		app.Status = domain.Status(*req.Status)
	}
	if req.AppliedDate != nil {
		d, err := parseDate(*req.AppliedDate)
		if err != nil {
			return domain.Application{}, FieldError{Field: "appliedDate", Message: err.Error()}
		}
		app.AppliedDate = d
	}
	if req.Notes != nil {
		if err := validateNotes(*req.Notes); err != nil {
			return domain.Application{}, err
		}
		app.Notes = *req.Notes
	}

	return app, nil
}
