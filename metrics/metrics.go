// Package metrics exposes checkout counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mythic"

// Checkout outcomes.
const (
	OutcomeCompleted      = "completed"
	OutcomeEmptyCart      = "empty_cart"
	OutcomeInvalidPayment = "invalid_payment"
	OutcomeFailed         = "failed"
	OutcomeReplayed       = "replayed"
)

// Coupon outcomes.
const (
	CouponRedeemed  = "redeemed"
	CouponInvalid   = "invalid"
	CouponExhausted = "exhausted"
)

// Metrics holds every collector the service exports. All methods are safe on
// a nil receiver so components can run without metrics in tests.
type Metrics struct {
	Requests     *prometheus.CounterVec
	LatencyMS    *prometheus.HistogramVec
	Checkouts    *prometheus.CounterVec
	Entitlements prometheus.Counter
	Coupons      *prometheus.CounterVec
	TxRetries    prometheus.Counter
	SideEffects  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		Entitlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "entitlements_granted_total",
			Help:      "Purchases created by committed checkouts.",
		}),
		Coupons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "coupons_total",
			Help:      "Coupon handling during checkout by outcome.",
		}, []string{"outcome"}),
		TxRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "tx_retries_total",
			Help:      "Checkout transactions retried after a serialization failure.",
		}),
		SideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "side_effects_total",
			Help:      "Post-commit side effects by step and result.",
		}, []string{"step", "result"}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.Checkouts, m.Entitlements, m.Coupons, m.TxRetries, m.SideEffects)
	return m
}

func (m *Metrics) ObserveRequest(handler, status string, ms float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, status).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(ms)
}

func (m *Metrics) Checkout(outcome string, granted int) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome).Inc()
	if granted > 0 {
		m.Entitlements.Add(float64(granted))
	}
}

func (m *Metrics) Coupon(outcome string) {
	if m == nil {
		return
	}
	m.Coupons.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TxRetry() {
	if m == nil {
		return
	}
	m.TxRetries.Inc()
}

func (m *Metrics) SideEffect(step string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.SideEffects.WithLabelValues(step, result).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
