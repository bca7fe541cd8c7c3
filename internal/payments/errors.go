package payments

import "errors"

var (
	// ErrNotFound means no appointment references the payment intent.
	ErrNotFound = errors.New("payments: payment not found")

	// ErrPermissionDenied means the actor is not the therapist who owns
	// the appointment behind the payment.
	ErrPermissionDenied = errors.New("payments: permission denied")

	// ErrAlreadyRefunded means the appointment's payment was refunded
	// by an earlier request.
	ErrAlreadyRefunded = errors.New("payments: already refunded")

	// ErrInvalidAmount means a partial refund amount is zero, negative,
	// or exceeds the original charge.
	ErrInvalidAmount = errors.New("payments: invalid refund amount")

	// ErrRefundProcessor wraps failures from the payment processor. No
	// local state is mutated when this is returned.
	ErrRefundProcessor = errors.New("payments: refund processor failure")
)
