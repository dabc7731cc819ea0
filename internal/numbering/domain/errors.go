package domain

import "errors"

var (
	// ErrNumberNotFound indicates no phone number matched the lookup.
	ErrNumberNotFound = errors.New("phone number not found")
	// ErrNotOwner indicates the number does not belong to the acting admin.
	ErrNotOwner = errors.New("phone number does not belong to this account")
	// ErrNumberInactive indicates an operation on a released number.
	ErrNumberInactive = errors.New("phone number is inactive")
	// ErrActivationConflict indicates the conditional activation update did
	// not apply; the service retries once before surfacing a failure.
	ErrActivationConflict = errors.New("activation update did not apply")
	// ErrDuplicateNumber indicates the number already exists in the system.
	ErrDuplicateNumber = errors.New("phone number already exists")
)
