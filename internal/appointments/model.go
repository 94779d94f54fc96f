package appointments

import (
	"errors"
	"time"
)

// Status is the lifecycle of a consultation appointment. The engine only
// ever creates scheduled appointments; the rest of the lifecycle is driven
// by humans or the scheduling integration.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// Appointment is a booked consultation for a lead.
type Appointment struct {
	ID            string     `json:"id"`
	LeadID        string     `json:"lead_id"`
	Status        Status     `json:"status"`
	ContactMethod string     `json:"contact_method,omitempty"`
	PreferredDate string     `json:"preferred_date,omitempty"`
	PreferredTime string     `json:"preferred_time,omitempty"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateRequest carries the booking preferences captured from the
// conversation. Calendar-slot resolution happens downstream.
type CreateRequest struct {
	LeadID        string
	ContactMethod string
	PreferredDate string
	PreferredTime string
}

var (
	// ErrNotFound is returned when an appointment does not exist.
	ErrNotFound = errors.New("appointment not found")

	// ErrMissingLead is returned when a create request has no lead.
	ErrMissingLead = errors.New("lead_id is required")
)
