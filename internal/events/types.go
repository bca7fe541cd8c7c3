package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the appointment core.
const (
	TypeAppointmentRescheduled = "appointment.rescheduled"
	TypePaymentRefunded        = "payment.refunded"
)

// AppointmentRescheduled is emitted when a reschedule supersedes an
// appointment with a replacement.
type AppointmentRescheduled struct {
	OriginalID  uuid.UUID `json:"original_id"`
	NewID       uuid.UUID `json:"new_id"`
	ClientID    uuid.UUID `json:"client_id"`
	TherapistID uuid.UUID `json:"therapist_id"`
	OldDateTime time.Time `json:"old_date_time"`
	NewDateTime time.Time `json:"new_date_time"`
	FeeCents    int32     `json:"fee_cents"`
	ActorRole   string    `json:"actor_role"`
	Reason      string    `json:"reason,omitempty"`
}

// PaymentRefunded is emitted after a successful processor refund.
type PaymentRefunded struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	ClientID        uuid.UUID `json:"client_id"`
	TherapistID     uuid.UUID `json:"therapist_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	RefundID        string    `json:"refund_id"`
	AmountCents     int32     `json:"amount_cents"`
	Reason          string    `json:"reason"`
}

// Envelope is the wire format published to the notification queue.
type Envelope struct {
	ID      uuid.UUID       `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
