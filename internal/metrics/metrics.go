// Package metrics exposes Prometheus counters for fetch cycles and providers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	providerFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywatch_provider_fetch_total",
			Help: "Ephemeris fetches by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	httpRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywatch_http_retries_total",
			Help: "HTTP retry attempts by remote host.",
		},
		[]string{"host"},
	)

	cycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skywatch_cycle_duration_seconds",
			Help:    "Duration of a complete refresh cycle.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)

	objectsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skywatch_objects",
			Help: "Catalog objects by visibility status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(providerFetchTotal)
	prometheus.MustRegister(httpRetriesTotal)
	prometheus.MustRegister(cycleDurationSeconds)
	prometheus.MustRegister(objectsByStatus)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one provider fetch.
func ObserveFetch(provider, outcome string) {
	providerFetchTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveRetry records a retried HTTP request to host.
func ObserveRetry(host string) {
	httpRetriesTotal.WithLabelValues(host).Inc()
}

// ObserveCycle records the duration of a refresh cycle.
func ObserveCycle(d time.Duration) {
	cycleDurationSeconds.Observe(d.Seconds())
}

// SetObjectCounts replaces the per-status object gauge.
func SetObjectCounts(counts map[string]int) {
	objectsByStatus.Reset()
	for status, n := range counts {
		objectsByStatus.WithLabelValues(status).Set(float64(n))
	}
}
