package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is missing or too short
	ErrInvalidName = errors.New("name must be at least 2 characters")

	// ErrInvalidPhone is returned when the phone number is missing
	ErrInvalidPhone = errors.New("phone is required")

	// ErrInvalidAddress is returned when the address is missing or too short
	ErrInvalidAddress = errors.New("address must be at least 5 characters")

	// ErrMissingSource is returned when the lead source is missing
	ErrMissingSource = errors.New("source is required")

	// ErrInvalidBill is returned when a supplied monthly bill is not positive
	ErrInvalidBill = errors.New("monthly_bill must be positive")

	// ErrInvalidStatus is returned when an unknown status value is supplied
	ErrInvalidStatus = errors.New("invalid lead status")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
