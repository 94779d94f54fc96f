package leads

import (
	"strings"
	"time"
)

// Status is the CRM status of a lead record. The qualification funnel state
// is never stored; it is derived from the fields below on every run.
type Status string

const (
	StatusNew            Status = "new"
	StatusContacted      Status = "contacted"
	StatusQualified      Status = "qualified"
	StatusAppointmentSet Status = "appointment_set"
	StatusDead           Status = "dead"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusAppointmentSet, StatusDead:
		return true
	}
	return false
}

// Terminal reports whether the qualification engine may still mutate the
// lead. Dead and booked leads are terminal for the engine; the wider system
// can still update them manually.
func (s Status) Terminal() bool {
	return s == StatusDead || s == StatusAppointmentSet
}

// Timeline buckets how soon the lead wants to go solar.
type Timeline string

const (
	TimelineImmediate   Timeline = "immediate"
	TimelineThreeToSix  Timeline = "3-6_months"
	TimelineSixToTwelve Timeline = "6-12_months"
	TimelineExploring   Timeline = "exploring"
)

// Valid reports whether t is a known timeline bucket.
func (t Timeline) Valid() bool {
	switch t {
	case TimelineImmediate, TimelineThreeToSix, TimelineSixToTwelve, TimelineExploring:
		return true
	}
	return false
}

// Lead is a prospective customer and their qualification record. Homeowner,
// MonthlyBill, Timeline and InterestScore are nil until learned from the
// conversation; once set they are never overwritten by the engine.
type Lead struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Email           *string    `json:"email,omitempty"`
	Address         string     `json:"address"`
	Source          string     `json:"source"`
	Status          Status     `json:"status"`
	Homeowner       *bool      `json:"homeowner,omitempty"`
	MonthlyBill     *int       `json:"monthly_bill,omitempty"`
	Timeline        *Timeline  `json:"timeline,omitempty"`
	InterestScore   *int       `json:"interest_score,omitempty"`
	ContactAttempts int        `json:"contact_attempts"`
	LastContact     *time.Time `json:"last_contact,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateLeadRequest represents the request body for creating a lead
type CreateLeadRequest struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Email       *string `json:"email,omitempty"`
	Address     string  `json:"address"`
	Source      string  `json:"source"`
	MonthlyBill *int    `json:"monthly_bill,omitempty"`
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if len(strings.TrimSpace(r.Name)) < 2 {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Phone) == "" {
		return ErrInvalidPhone
	}
	if len(strings.TrimSpace(r.Address)) < 5 {
		return ErrInvalidAddress
	}
	if strings.TrimSpace(r.Source) == "" {
		return ErrMissingSource
	}
	if r.MonthlyBill != nil && *r.MonthlyBill <= 0 {
		return ErrInvalidBill
	}
	return nil
}

// UpdateLeadRequest carries an admin-initiated partial update. Nil fields are
// left untouched.
type UpdateLeadRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
	Status  *Status `json:"status,omitempty"`
}

// Validate checks the fields that are present.
func (r *UpdateLeadRequest) Validate() error {
	if r.Name != nil && len(strings.TrimSpace(*r.Name)) < 2 {
		return ErrInvalidName
	}
	if r.Address != nil && len(strings.TrimSpace(*r.Address)) < 5 {
		return ErrInvalidAddress
	}
	if r.Status != nil && !r.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// QualificationFacts is the fill-empty-only update applied by the extraction
// path. A nil field carries no information; non-nil fields are written only
// where the lead column is still NULL.
type QualificationFacts struct {
	Homeowner     *bool
	MonthlyBill   *int
	Timeline      *Timeline
	InterestScore *int
}

// Empty reports whether the facts carry nothing to persist.
func (f QualificationFacts) Empty() bool {
	return f.Homeowner == nil && f.MonthlyBill == nil && f.Timeline == nil && f.InterestScore == nil
}

// QualificationUpdate is the authoritative update applied when the model
// calls qualify_lead. The dispatcher recomputes InterestScore itself and
// derives Status before issuing it. Nil Homeowner, MonthlyBill and Timeline
// leave the stored facts untouched; a lead is never assigned a fact it did
// not give.
type QualificationUpdate struct {
	Homeowner     *bool
	MonthlyBill   *int
	Timeline      *Timeline
	InterestScore int
	Status        Status
}

// ListFilter narrows List results.
type ListFilter struct {
	Status Status
	Source string
	From   *time.Time
	To     *time.Time
	Limit  int
}
