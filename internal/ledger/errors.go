package ledger

import "errors"

var (
	// ErrInvalidAmount is returned for non-positive payments, negative bills and amounts
	// that do not fit two decimal places.
	ErrInvalidAmount = errors.New("ledger: invalid amount")
	// ErrInvalidMethod is returned when a payment method is not recognised.
	ErrInvalidMethod = errors.New("ledger: invalid payment method")
	// ErrMissingStudent is returned when a posting has no student reference.
	ErrMissingStudent = errors.New("ledger: student id is required")
	// ErrRecordNotFound is returned when a student has no fee record.
	ErrRecordNotFound = errors.New("ledger: fee record not found")
	// ErrScheduleNotFound is returned when no schedule exists for a grade level.
	ErrScheduleNotFound = errors.New("ledger: fee schedule not found")
)
