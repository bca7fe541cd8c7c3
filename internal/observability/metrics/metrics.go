package metrics

import "github.com/prometheus/client_golang/prometheus"

// AppointmentMetrics exposes counters/histograms for the appointment
// lifecycle flows.
type AppointmentMetrics struct {
	reschedulesTotal *prometheus.CounterVec
	refundsTotal     *prometheus.CounterVec
	feeCents         prometheus.Histogram
}

func NewAppointmentMetrics(reg prometheus.Registerer) *AppointmentMetrics {
	m := &AppointmentMetrics{
		reschedulesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solace",
			Subsystem: "appointments",
			Name:      "reschedules_total",
			Help:      "Total reschedule operations",
		}, []string{"actor_role", "fee_tier"}),
		refundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solace",
			Subsystem: "payments",
			Name:      "refunds_total",
			Help:      "Total refund attempts",
		}, []string{"kind", "outcome"}),
		feeCents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "solace",
			Subsystem: "appointments",
			Name:      "cancellation_fee_cents",
			Help:      "Cancellation/reschedule fees charged",
			Buckets:   []float64{0, 1000, 2500, 5000, 10000, 20000, 50000},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reschedulesTotal, m.refundsTotal, m.feeCents)
	return m
}

func (m *AppointmentMetrics) ObserveReschedule(actorRole, feeTier string) {
	if m == nil {
		return
	}
	m.reschedulesTotal.WithLabelValues(actorRole, feeTier).Inc()
}

func (m *AppointmentMetrics) ObserveRefund(kind, outcome string) {
	if m == nil {
		return
	}
	m.refundsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *AppointmentMetrics) ObserveFee(cents int32) {
	if m == nil {
		return
	}
	m.feeCents.Observe(float64(cents))
}
