package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nexusshop"

// StorefrontMetrics records engine commands and simulated network calls.
// A nil *StorefrontMetrics is a valid no-op recorder.
type StorefrontMetrics struct {
	cartCommands   *prometheus.CounterVec
	couponAttempts *prometheus.CounterVec
	filterQueries  prometheus.Counter
	filterResults  prometheus.Histogram
	simulatedCalls *prometheus.HistogramVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	cartCommands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_commands_total",
		Help:      "Cart commands executed, by command.",
	}, []string{"command"})
	couponAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupon_attempts_total",
		Help:      "Coupon codes submitted, by result.",
	}, []string{"result"})
	filterQueries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "filter_queries_total",
		Help:      "Catalog filter evaluations.",
	})
	filterResults := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "filter_result_size",
		Help:      "Number of products matched per filter evaluation.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})
	simulatedCalls := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulated_call_duration_seconds",
		Help:      "Duration of simulated network calls in seconds.",
		Buckets:   []float64{0.05, 0.25, 0.5, 1, 1.5, 2, 5},
	}, []string{"operation", "outcome"})
	reg.MustRegister(cartCommands, couponAttempts, filterQueries, filterResults, simulatedCalls)
	return &StorefrontMetrics{
		cartCommands:   cartCommands,
		couponAttempts: couponAttempts,
		filterQueries:  filterQueries,
		filterResults:  filterResults,
		simulatedCalls: simulatedCalls,
	}
}

// ObserveCartCommand counts one cart command.
func (m *StorefrontMetrics) ObserveCartCommand(command string) {
	if m == nil || m.cartCommands == nil {
		return
	}
	m.cartCommands.WithLabelValues(normalizeLabel(command)).Inc()
}

// ObserveCouponAttempt counts a coupon submission as applied or rejected.
func (m *StorefrontMetrics) ObserveCouponAttempt(applied bool) {
	if m == nil || m.couponAttempts == nil {
		return
	}
	result := "rejected"
	if applied {
		result = "applied"
	}
	m.couponAttempts.WithLabelValues(result).Inc()
}

// ObserveFilterQuery records one filter evaluation and its result size.
func (m *StorefrontMetrics) ObserveFilterQuery(resultSize int) {
	if m == nil || m.filterQueries == nil {
		return
	}
	m.filterQueries.Inc()
	m.filterResults.Observe(float64(resultSize))
}

// ObserveSimulatedCall records a simulated call's duration and outcome.
func (m *StorefrontMetrics) ObserveSimulatedCall(operation, outcome string, duration time.Duration) {
	if m == nil || m.simulatedCalls == nil {
		return
	}
	m.simulatedCalls.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
