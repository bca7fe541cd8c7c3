package appointments

import "testing"

func TestComputeFeeFreeWindow(t *testing.T) {
	for _, hours := range []float64{24.01, 25, 48, 24 * 14} {
		if fee := ComputeFee(10000, hours, 50); fee != 0 {
			t.Fatalf("expected free cancellation at %.2fh, got %d", hours, fee)
		}
	}
}

func TestComputeFeeLateWindow(t *testing.T) {
	cases := []struct {
		name       string
		priceCents int32
		hours      float64
		feePct     int32
		want       int32
	}{
		{"half of 100 dollars", 10000, 10, 50, 5000},
		{"thirty percent", 10000, 23.9, 30, 3000},
		{"boundary just inside 24h", 10000, 24, 50, 5000},
		{"boundary just above 2h", 10000, 2.01, 50, 5000},
		{"odd price floors", 9999, 12, 50, 4999},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if fee := ComputeFee(tc.priceCents, tc.hours, tc.feePct); fee != tc.want {
				t.Fatalf("ComputeFee(%d, %.2f, %d) = %d, want %d", tc.priceCents, tc.hours, tc.feePct, fee, tc.want)
			}
		})
	}
}

func TestComputeFeeLastMinuteWindow(t *testing.T) {
	for _, hours := range []float64{2, 1, 0.5, 0, -1, -100} {
		if fee := ComputeFee(10000, hours, 50); fee != 10000 {
			t.Fatalf("expected full price at %.2fh, got %d", hours, fee)
		}
	}
}

func TestComputeFeeDefaultsPercentage(t *testing.T) {
	// Unconfigured therapists fall back to the 50% default.
	if fee := ComputeFee(10000, 10, 0); fee != 5000 {
		t.Fatalf("expected default 50%% fee, got %d", fee)
	}
	if fee := ComputeFee(10000, 10, -5); fee != 5000 {
		t.Fatalf("expected default fee for negative pct, got %d", fee)
	}
}

func TestComputeFeeZeroPrice(t *testing.T) {
	if fee := ComputeFee(0, 1, 50); fee != 0 {
		t.Fatalf("expected zero fee for free session, got %d", fee)
	}
}

func TestFeeTier(t *testing.T) {
	cases := map[float64]string{
		30:  FeeTierFree,
		25:  FeeTierFree,
		24:  FeeTierLate,
		10:  FeeTierLate,
		2.5: FeeTierLate,
		2:   FeeTierLastMinute,
		0:   FeeTierLastMinute,
		-3:  FeeTierLastMinute,
	}
	for hours, want := range cases {
		if got := FeeTier(hours); got != want {
			t.Fatalf("FeeTier(%.2f) = %s, want %s", hours, got, want)
		}
	}
}
