package models

import "errors"

// Sentinel errors shared across the service. Callers match them with
// errors.Is after the usual %w wrapping.
var (
	// ErrInvalidPhone marks a phone number that cannot be normalized into
	// a dialable international form.
	ErrInvalidPhone = errors.New("invalid phone format")

	// ErrDuplicatePhone marks a guest whose phone collides with another
	// guest on the same owner's list.
	ErrDuplicatePhone = errors.New("duplicate phone")

	// ErrMissingGuestField marks a guest record missing a required field.
	ErrMissingGuestField = errors.New("missing required guest field")

	// ErrIncompleteDetails rejects a dispatch whose template needs wedding
	// fields that were never filled in.
	ErrIncompleteDetails = errors.New("incomplete wedding details")

	// ErrQuotaExceeded rejects a dispatch whose target group is larger than
	// the daily send quota.
	ErrQuotaExceeded = errors.New("group exceeds daily send quota")

	// ErrGuestNotFound is returned by storage lookups that match no guest.
	ErrGuestNotFound = errors.New("guest not found")

	// ErrDetailsNotFound is returned when an owner has no wedding details yet.
	ErrDetailsNotFound = errors.New("wedding details not found")
)
