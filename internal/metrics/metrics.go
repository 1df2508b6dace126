// Package metrics exposes cycle counters for the schedule mode /metrics endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the poller updates. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	entriesFetched *prometheus.CounterVec
	papersMatched  *prometheus.CounterVec
	areaFailures   *prometheus.CounterVec
	deliveries     *prometheus.CounterVec
	retries        *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	lastSuccess    prometheus.Gauge
}

// New registers collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWith(reg, reg)
}

// NewWith registers collectors on reg and serves them from g.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		entriesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperposter_entries_fetched_total",
			Help: "Entries returned by sources, per area",
		}, []string{"area"}),
		papersMatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperposter_papers_matched_total",
			Help: "Entries that matched at least one rule, per area",
		}, []string{"area"}),
		areaFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperposter_area_failures_total",
			Help: "Areas that failed to fetch or classify, by error kind",
		}, []string{"area", "kind"}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperposter_deliveries_total",
			Help: "Delivery outcomes per target",
		}, []string{"target", "result"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperposter_retries_total",
			Help: "Failed attempts that were retried",
		}, []string{"target"}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "paperposter_cycle_duration_seconds",
			Help:    "Wall time of a full cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "paperposter_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that stored its cursors",
		}),
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) EntriesFetched(area string, n int) {
	if m == nil {
		return
	}
	m.entriesFetched.WithLabelValues(area).Add(float64(n))
}

func (m *Metrics) PapersMatched(area string, n int) {
	if m == nil {
		return
	}
	m.papersMatched.WithLabelValues(area).Add(float64(n))
}

func (m *Metrics) AreaFailed(area, kind string) {
	if m == nil {
		return
	}
	m.areaFailures.WithLabelValues(area, kind).Inc()
}

// Delivered records one delivery outcome; result is "ok" or "failed".
func (m *Metrics) Delivered(target, result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(target, result).Inc()
}

func (m *Metrics) Retried(target string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(target).Inc()
}

// CycleDone observes the cycle duration and, on success, stamps the time.
func (m *Metrics) CycleDone(started time.Time, ok bool) {
	if m == nil {
		return
	}
	now := time.Now()
	m.cycleDuration.Observe(now.Sub(started).Seconds())
	if ok {
		m.lastSuccess.Set(float64(now.Unix()))
	}
}
