package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records derived-aggregate mutations and rejections.
type LedgerMetrics struct {
	adjustments *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	delta       *prometheus.HistogramVec
}

// NewLedgerMetrics registers the stock ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_ledger_adjustments_total",
		Help: "Committed stock ledger adjustments by direction.",
	}, []string{"direction"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_ledger_rejections_total",
		Help: "Rejected ledger operations by reason.",
	}, []string{"reason"})
	delta := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_ledger_delta_quantity",
		Help:    "Absolute quantity of applied ledger deltas.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"direction"})
	reg.MustRegister(adjustments, rejections, delta)
	return &LedgerMetrics{
		adjustments: adjustments,
		rejections:  rejections,
		delta:       delta,
	}
}

// ObserveAdjustment records a committed delta.
func (m *LedgerMetrics) ObserveAdjustment(delta int) {
	if m == nil || m.adjustments == nil {
		return
	}
	direction := "increase"
	abs := delta
	if delta < 0 {
		direction = "decrease"
		abs = -delta
	}
	m.adjustments.WithLabelValues(direction).Inc()
	m.delta.WithLabelValues(direction).Observe(float64(abs))
}

// IncRejection increments the rejection counter for the named reason.
func (m *LedgerMetrics) IncRejection(reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.rejections.WithLabelValues(reason).Inc()
}
