package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveAdjustmentDirections(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.ObserveAdjustment(5)
	m.ObserveAdjustment(-3)
	m.ObserveAdjustment(-1)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.adjustments.WithLabelValues("increase")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.adjustments.WithLabelValues("decrease")))
}

func TestIncRejectionDefaultsReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.IncRejection("insufficient_stock")
	m.IncRejection("")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.rejections.WithLabelValues("insufficient_stock")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rejections.WithLabelValues("unknown")))
}

func TestNilRegistererIsSafe(t *testing.T) {
	m := NewLedgerMetrics(nil)
	m.ObserveAdjustment(1)
	m.IncRejection("insufficient_stock")

	var nilMetrics *LedgerMetrics
	nilMetrics.ObserveAdjustment(1)
	nilMetrics.IncRejection("x")
}
