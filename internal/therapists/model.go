package therapists

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCancellationFeePct applies when a therapist has not configured
// a late-cancellation percentage.
const DefaultCancellationFeePct int32 = 50

// Profile is a therapist's public profile and fee policy.
type Profile struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	DisplayName        string    `json:"display_name"`
	CancellationFeePct *int32    `json:"cancellation_fee_percentage,omitempty"`
	CancellationPolicy string    `json:"cancellation_policy,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// EffectiveFeePct returns the configured late-cancellation percentage,
// falling back to the platform default.
func (p *Profile) EffectiveFeePct() int32 {
	if p == nil || p.CancellationFeePct == nil {
		return DefaultCancellationFeePct
	}
	return *p.CancellationFeePct
}

// Service is a bookable offering with a price and billing type.
type Service struct {
	ID              uuid.UUID `json:"id"`
	TherapistID     uuid.UUID `json:"therapist_id"`
	Name            string    `json:"name"`
	PriceCents      int32     `json:"price_cents"`
	Currency        string    `json:"currency"`
	Type            string    `json:"type"` // one_time or subscription
	BillingInterval string    `json:"billing_interval,omitempty"`
	Active          bool      `json:"active"`
}
