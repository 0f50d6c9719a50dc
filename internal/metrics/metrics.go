// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth operation outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics contains the service's custom collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	registerer prometheus.Registerer

	AuthOperations     *prometheus.CounterVec
	ResetTokensCleared prometheus.Counter
	HTTPRequests       *prometheus.HistogramVec
}

// New creates a registry with the Go and process collectors plus the
// service collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := NewMetrics(reg)
	m.registry = reg
	return m
}

// NewMetrics creates and registers the service collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registerer: reg,
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_auth_operations_total",
				Help: "Total number of credential operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ResetTokensCleared: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "backoffice_reset_tokens_cleared_total",
				Help: "Total number of expired reset tokens cleared by the cleanup job",
			},
		),
		HTTPRequests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backoffice_http_request_duration_seconds",
				Help:    "HTTP request latency by method, route pattern and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	reg.MustRegister(m.AuthOperations)
	reg.MustRegister(m.ResetTokensCleared)
	reg.MustRegister(m.HTTPRequests)

	return m
}

// RecordAuth increments the counter for one credential operation
func (m *Metrics) RecordAuth(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordResetTokensCleared adds n cleared reset tokens
func (m *Metrics) RecordResetTokensCleared(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ResetTokensCleared.Add(float64(n))
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// PoolSnapshot is a point-in-time view of the database connection pool
type PoolSnapshot struct {
	Acquired int32
	Idle     int32
	Total    int32
	Max      int32
}

// RegisterPoolStats exports the pool snapshot returned by fn as gauges,
// sampled at scrape time.
func (m *Metrics) RegisterPoolStats(fn func() PoolSnapshot) {
	if m == nil || m.registerer == nil || fn == nil {
		return
	}

	gauge := func(state string, pick func(PoolSnapshot) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "backoffice_db_pool_connections",
				Help:        "Database pool connections by state",
				ConstLabels: prometheus.Labels{"state": state},
			},
			func() float64 { return float64(pick(fn())) },
		)
	}

	m.registerer.MustRegister(
		gauge("acquired", func(s PoolSnapshot) int32 { return s.Acquired }),
		gauge("idle", func(s PoolSnapshot) int32 { return s.Idle }),
		gauge("total", func(s PoolSnapshot) int32 { return s.Total }),
		gauge("max", func(s PoolSnapshot) int32 { return s.Max }),
	)
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
