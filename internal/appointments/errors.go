package appointments

import "errors"

var (
	// ErrNotFound is returned when no appointment exists for the id
	ErrNotFound = errors.New("appointment not found")

	// ErrPermissionDenied is returned when the actor is neither the
	// client nor the owning therapist
	ErrPermissionDenied = errors.New("not authorized for this appointment")

	// ErrPastAppointment is returned on attempts to mutate a session
	// whose time has already passed
	ErrPastAppointment = errors.New("appointment is already in the past")

	// ErrDateTimeNotFuture is returned when a booking or reschedule
	// targets a time that is not in the future
	ErrDateTimeNotFuture = errors.New("appointment time must be in the future")

	// ErrInvalidStatus is returned for unknown status values
	ErrInvalidStatus = errors.New("invalid appointment status")

	// ErrAlreadyFinalized is returned when updating a completed or
	// cancelled appointment's status
	ErrAlreadyFinalized = errors.New("appointment is already completed or cancelled")
)
