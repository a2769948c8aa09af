package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records order placement and worker-side pipeline outcomes.
type OrderMetrics struct {
	placed      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	settlements *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed, labeled by delivery mode.",
	}, []string{"delivery_mode"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_pricing_failures_total",
		Help: "Order placements aborted during pricing.",
	}, []string{"reason"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_settlements_total",
		Help: "Settlement computations, labeled by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_pipeline_duration_seconds",
		Help:    "Duration of worker-side order pipeline stages.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	reg.MustRegister(placed, failures, settlements, duration)
	return &OrderMetrics{
		placed:      placed,
		failures:    failures,
		settlements: settlements,
		duration:    duration,
	}
}

// IncPlaced increments the placed counter for the delivery mode.
func (m *OrderMetrics) IncPlaced(mode string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(mode)).Inc()
}

// IncPricingFailure increments the pricing failure counter.
func (m *OrderMetrics) IncPricingFailure(reason string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncSettlement increments the settlement counter for the given outcome.
func (m *OrderMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveStage records the duration for a worker pipeline stage.
func (m *OrderMetrics) ObserveStage(stage string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(stage)).Observe(d.Seconds())
}
