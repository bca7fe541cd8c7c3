package payments

import (
	"time"

	"github.com/google/uuid"
)

// RefundKindFull and RefundKindPartial label the refund scope for
// metrics and auditing.
const (
	RefundKindFull    = "full"
	RefundKindPartial = "partial"
)

// PaymentRefund is the persisted audit record of a processed refund.
type PaymentRefund struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	// PaymentIntentID is the processor's handle for the original charge.
	PaymentIntentID string    `json:"payment_intent_id"`
	RefundID        string    `json:"refund_id"`
	AmountCents     int32     `json:"amount_cents"`
	Reason          string    `json:"reason"`
	// Status is the processor's refund status at creation time.
	Status     string    `json:"status"`
	RefundedBy uuid.UUID `json:"refunded_by"`
	CreatedAt       time.Time `json:"created_at"`
}
