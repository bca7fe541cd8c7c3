package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus tracks the money side of an appointment.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFree     PaymentStatus = "free"
)

// Appointment is a scheduled therapy session. Cancelled rows are kept
// for audit and refund history, never deleted.
type Appointment struct {
	ID                 uuid.UUID     `json:"id"`
	ClientID           uuid.UUID     `json:"client_id"`
	TherapistID        uuid.UUID     `json:"therapist_id"` // therapist_profiles.id
	ServiceID          *uuid.UUID    `json:"service_id,omitempty"`
	DateTime           time.Time     `json:"date_time"`
	Status             Status        `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentIntentID    *string       `json:"payment_intent_id,omitempty"`
	SubscriptionID     *string       `json:"subscription_id,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	RescheduledFrom    *time.Time    `json:"rescheduled_from,omitempty"`
	Notes              string        `json:"notes,omitempty"`

	// Price snapshot captured at booking time so later service edits
	// never change what a past appointment cost.
	PriceCents *int32  `json:"price_cents,omitempty"`
	Currency   *string `json:"currency,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// View is an appointment joined with the display data list screens need.
type View struct {
	Appointment
	TherapistName     string  `json:"therapist_name"`
	ClientName        string  `json:"client_name"`
	ServiceName       *string `json:"service_name,omitempty"`
	ServicePriceCents *int32  `json:"service_price_cents,omitempty"`
	ServiceCurrency   *string `json:"service_currency,omitempty"`
	ServiceType       *string `json:"service_type,omitempty"`
}

// EffectivePriceCents returns the booked price: the snapshot when one
// was captured, otherwise the referenced service's current price.
func (v *View) EffectivePriceCents() int32 {
	if v.PriceCents != nil {
		return *v.PriceCents
	}
	if v.ServicePriceCents != nil {
		return *v.ServicePriceCents
	}
	return 0
}
