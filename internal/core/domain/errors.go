package domain

import "errors"

// Reservation lifecycle errors
var (
	// ErrPreconditionFailed covers creation preconditions: the target book is
	// unavailable or inactive, or the target user is missing or inactive.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrIntegrityFault means a referenced book or user disappeared between
	// the canonical write and the projection write. The transaction aborts.
	ErrIntegrityFault = errors.New("integrity fault")
)
