package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && pair.GetValue() == want {
			found++
		}
	}
	return found == len(labels)
}

func TestObserveReschedule(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAppointmentMetrics(reg)

	m.ObserveReschedule("client", "late")
	m.ObserveReschedule("client", "late")
	m.ObserveReschedule("therapist", "free")

	got := gatherCounter(t, reg, "solace_appointments_reschedules_total", map[string]string{
		"actor_role": "client",
		"fee_tier":   "late",
	})
	if got != 2 {
		t.Fatalf("expected 2 client/late reschedules, got %v", got)
	}
}

func TestObserveRefund(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAppointmentMetrics(reg)

	m.ObserveRefund("full", "succeeded")

	got := gatherCounter(t, reg, "solace_payments_refunds_total", map[string]string{
		"kind":    "full",
		"outcome": "succeeded",
	})
	if got != 1 {
		t.Fatalf("expected 1 refund, got %v", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *AppointmentMetrics
	m.ObserveReschedule("client", "free")
	m.ObserveRefund("partial", "failed")
	m.ObserveFee(5000)
}
