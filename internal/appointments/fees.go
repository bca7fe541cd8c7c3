package appointments

import "github.com/solace-health/solace-platform/internal/therapists"

// Cancellation fee windows, in hours before the session.
const (
	FreeCancellationHours = 24
	LastMinuteHours       = 2
)

// Fee tiers, used as metric labels and in log lines.
const (
	FeeTierFree       = "free"
	FeeTierLate       = "late"
	FeeTierLastMinute = "last_minute"
)

// ComputeFee returns the cancellation/reschedule fee in cents for a
// session priced at priceCents, hoursUntilSession hours away, under a
// therapist-configured feePct. More than 24 hours out is free; between
// 2 and 24 hours costs feePct of the price; 2 hours or less, including
// sessions already past, costs the full price. A non-positive feePct
// falls back to the platform default.
//
// Pure function: no I/O, no clock access.
func ComputeFee(priceCents int32, hoursUntilSession float64, feePct int32) int32 {
	if priceCents <= 0 {
		return 0
	}
	if feePct <= 0 {
		feePct = therapists.DefaultCancellationFeePct
	}
	switch {
	case hoursUntilSession > FreeCancellationHours:
		return 0
	case hoursUntilSession > LastMinuteHours:
		return int32(int64(priceCents) * int64(feePct) / 100)
	default:
		return priceCents
	}
}

// FeeTier names the policy window a given lead time falls into.
func FeeTier(hoursUntilSession float64) string {
	switch {
	case hoursUntilSession > FreeCancellationHours:
		return FeeTierFree
	case hoursUntilSession > LastMinuteHours:
		return FeeTierLate
	default:
		return FeeTierLastMinute
	}
}
