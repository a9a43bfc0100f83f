package domain

import "errors"

// Sentinel errors shared across services. Controllers match these with
// errors.Is to pick the HTTP status and error code; services wrap them
// with fmt.Errorf("...: %w", err) for context.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrForbidden        = errors.New("forbidden")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Admission failures.
	ErrEventFinished       = errors.New("event already occurred")
	ErrCapacityExceeded    = errors.New("event has no available spots")
	ErrDuplicateEnrollment = errors.New("user already has an active enrollment for this event")

	// Lifecycle failures.
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
	ErrInvalidStateTransition   = errors.New("invalid enrollment state transition")

	// Event management failures.
	ErrEventHasConfirmed = errors.New("event has confirmed enrollments")

	// Auth failures.
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
