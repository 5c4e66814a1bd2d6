package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comigor/convoview/internal/lifecycle"
	"github.com/comigor/convoview/internal/view"
)

// Metrics are the viewer's Prometheus collectors. Each server gets its own
// registry so tests can build as many servers as they like.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PagesSettled    *prometheus.CounterVec
	ActionsTotal    *prometheus.CounterVec
	ActivePages     prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "convoview",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "convoview",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),

		PagesSettled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "convoview",
				Subsystem: "page",
				Name:      "settled_total",
				Help:      "Page fetches that settled, by page kind and resulting state",
			},
			[]string{"kind", "state"},
		),

		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "convoview",
				Subsystem: "page",
				Name:      "actions_total",
				Help:      "User actions on pages, by action and outcome",
			},
			[]string{"action", "outcome"},
		),

		ActivePages: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "convoview",
				Subsystem: "page",
				Name:      "active",
				Help:      "Page instances currently held in the registry",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) settled(kind view.Kind, state lifecycle.State) {
	m.PagesSettled.WithLabelValues(string(kind), string(state)).Inc()
}

func (m *Metrics) action(name string, outcome view.Outcome) {
	m.ActionsTotal.WithLabelValues(name, string(outcome)).Inc()
}

func (m *Metrics) observe(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
