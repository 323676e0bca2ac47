package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trackclip/internal/core"
)

// Metrics holds the service collectors. It also records orchestration events.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	CacheLookupsTotal *prometheus.CounterVec
	RendersTotal      *prometheus.CounterVec
	RenderDuration    prometheus.Histogram
	FailuresTotal     *prometheus.CounterVec
	RateLimitedTotal  prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackclip_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trackclip_http_request_duration_seconds",
				Help:    "Time spent serving HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackclip_cache_lookups_total",
				Help: "Total number of cache lookups",
			},
			[]string{"kind", "result"},
		),
		RendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackclip_renders_total",
				Help: "Total number of clip renders",
			},
			[]string{"status"},
		),
		RenderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trackclip_render_duration_seconds",
				Help:    "Time spent rendering clips",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackclip_failures_total",
				Help: "Total number of failed requests by error class",
			},
			[]string{"class"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trackclip_rate_limited_total",
				Help: "Total number of requests rejected by the floodgate",
			},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.CacheLookupsTotal,
		m.RendersTotal,
		m.RenderDuration,
		m.FailuresTotal,
		m.RateLimitedTotal,
	)

	return m
}

func (m *Metrics) CacheLookup(kind, result string) {
	m.CacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RenderObserved(status string, took time.Duration) {
	m.RendersTotal.WithLabelValues(status).Inc()
	m.RenderDuration.Observe(took.Seconds())
}

func (m *Metrics) FailureObserved(class core.ErrorClass) {
	m.FailuresTotal.WithLabelValues(class.String()).Inc()
}
