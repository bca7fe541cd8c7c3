package therapists

import "errors"

var (
	// ErrUserNotFound is returned when no user row exists for the id
	ErrUserNotFound = errors.New("user not found")

	// ErrProfileNotFound is returned when a therapist profile is missing
	ErrProfileNotFound = errors.New("therapist profile not found")

	// ErrServiceNotFound is returned when a bookable service is missing
	ErrServiceNotFound = errors.New("therapist service not found")
)
