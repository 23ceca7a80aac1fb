package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	chainFetches *prometheus.CounterVec
	contracts    prometheus.Counter
	rateLimited  *prometheus.CounterVec
	snapshots    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		chainFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionpulse_chain_fetches_total",
				Help: "Total number of upstream option chain fetches",
			},
			[]string{"result"},
		),
		contracts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "optionpulse_contracts_computed_total",
				Help: "Total number of contracts enriched with greeks",
			},
		),
		rateLimited: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionpulse_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
		snapshots: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionpulse_snapshots_recorded_total",
				Help: "Total number of screener snapshots recorded to a backend",
			},
			[]string{"backend"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optionpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordChainFetch records an upstream chain fetch outcome.
func (r *Recorder) RecordChainFetch(result string) {
	r.chainFetches.WithLabelValues(result).Inc()
}

// RecordContracts records the number of contracts produced by a snapshot.
func (r *Recorder) RecordContracts(n int) {
	r.contracts.Add(float64(n))
}

// RecordRateLimited records a request rejected by the rate limiter.
func (r *Recorder) RecordRateLimited(route string) {
	r.rateLimited.WithLabelValues(route).Inc()
}

// RecordSnapshot records a snapshot published to a backend.
func (r *Recorder) RecordSnapshot(backend string) {
	r.snapshots.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
