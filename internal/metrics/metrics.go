// Package metrics exposes poll, query and join counters in Prometheus format.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/woozymasta/autojoin/internal/probe"
	"github.com/woozymasta/autojoin/internal/query"
)

// Query results used as the "result" label.
const (
	ResultOK          = "ok"
	ResultTimeout     = "timeout"
	ResultMalformed   = "malformed"
	ResultProbeFailed = "probe_failed"
	ResultError       = "error"
	ResultJoinFailed  = "failed"
)

// Metrics holds the registry and collectors. A nil *Metrics records nothing.
type Metrics struct {
	r *prometheus.Registry

	queries *prometheus.CounterVec
	latency prometheus.Histogram
	cycles  prometheus.Counter
	ranked  prometheus.Gauge
	joins   *prometheus.CounterVec
}

// New creates a registry with all collectors registered.
func New() *Metrics {
	r := prometheus.NewRegistry()

	m := &Metrics{
		r: r,
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autojoin_queries_total",
			Help: "Count of A2S_INFO queries by result",
		}, []string{"result"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autojoin_query_latency_seconds",
			Help:    "Measured latency of successfully queried servers",
			Buckets: []float64{.005, .01, .02, .035, .05, .075, .1, .15, .25, .5, 1},
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autojoin_cycles_total",
			Help: "Count of completed poll cycles",
		}),
		ranked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autojoin_ranked_servers",
			Help: "Number of servers in the latest ranked list",
		}),
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autojoin_joins_total",
			Help: "Count of join attempts by result",
		}, []string{"result"}),
	}

	r.MustRegister(m.queries, m.latency, m.cycles, m.ranked, m.joins)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.r
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.r, promhttp.HandlerOpts{
		Registry:          m.r,
		EnableOpenMetrics: true,
	})
}

// ObserveQuery records the outcome of one address in a poll cycle.
func (m *Metrics) ObserveQuery(latency time.Duration, err error) {
	if m == nil {
		return
	}

	m.queries.WithLabelValues(QueryResult(err)).Inc()
	if err == nil {
		m.latency.Observe(latency.Seconds())
	}
}

// ObserveCycle records a finished poll cycle.
func (m *Metrics) ObserveCycle(ranked int) {
	if m == nil {
		return
	}

	m.cycles.Inc()
	m.ranked.Set(float64(ranked))
}

// ObserveJoin records a join attempt.
func (m *Metrics) ObserveJoin(err error) {
	if m == nil {
		return
	}

	result := ResultOK
	if err != nil {
		result = ResultJoinFailed
	}
	m.joins.WithLabelValues(result).Inc()
}

// QueryResult maps a per-address error to its label value.
func QueryResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, query.ErrQueryTimeout):
		return ResultTimeout
	case errors.Is(err, query.ErrMalformedResponse):
		return ResultMalformed
	case errors.Is(err, probe.ErrProbeFailed):
		return ResultProbeFailed
	default:
		return ResultError
	}
}
