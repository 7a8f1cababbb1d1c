package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridee",
			Name:      "api_requests_total",
			Help:      "Backend requests by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gridee",
			Name:      "api_request_duration_seconds",
			Help:      "Backend request duration.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	scanDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridee",
			Name:      "scan_decisions_total",
			Help:      "QR scan determinations by selected action.",
		},
		[]string{"action"},
	)

	paymentSettlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridee",
			Name:      "payment_settlements_total",
			Help:      "Payment confirmations by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, apiDuration, scanDecisions, paymentSettlements)
	})
}

// ObserveRequest records one backend request.
func ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	apiRequests.WithLabelValues(endpoint, outcome).Inc()
	apiDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// IncScanDecision counts a determination (checkin, checkout, error).
func IncScanDecision(action string) {
	scanDecisions.WithLabelValues(action).Inc()
}

// IncSettlement counts a payment confirmation result (success, failure).
func IncSettlement(result string) {
	paymentSettlements.WithLabelValues(result).Inc()
}
