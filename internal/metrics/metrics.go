// Package metrics exposes Prometheus collectors for the dashboard server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every dashboard collector on its own Prometheus registry.
type Registry struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SessionsActive     prometheus.Gauge
	SessionsReaped     prometheus.Counter
	ScenarioSelections *prometheus.CounterVec
	FocusUpdates       prometheus.Counter
	ChatTurns          *prometheus.CounterVec
	WizardSteps        *prometheus.CounterVec
	MapErrors          *prometheus.CounterVec
	ActivityWriteFails prometheus.Counter

	registry *prometheus.Registry
}

// NewRegistry creates a registry with all collectors initialized.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r := &Registry{registry: reg}
	r.initHTTPMetrics()
	r.initDashboardMetrics()
	return r
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityops_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cityops_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

func (r *Registry) initDashboardMetrics() {
	f := promauto.With(r.registry)
	r.SessionsActive = f.NewGauge(prometheus.GaugeOpts{
		Name: "cityops_sessions_active",
		Help: "Number of live dashboard sessions",
	})
	r.SessionsReaped = f.NewCounter(prometheus.CounterOpts{
		Name: "cityops_sessions_reaped_total",
		Help: "Sessions closed after being idle",
	})
	r.ScenarioSelections = f.NewCounterVec(prometheus.CounterOpts{
		Name: "cityops_scenario_selections_total",
		Help: "Scenario selections by scenario key",
	}, []string{"scenario"})
	r.FocusUpdates = f.NewCounter(prometheus.CounterOpts{
		Name: "cityops_focus_updates_total",
		Help: "Focus slider updates",
	})
	r.ChatTurns = f.NewCounterVec(prometheus.CounterOpts{
		Name: "cityops_chat_turns_total",
		Help: "Copilot chat turns by area and detected intent",
	}, []string{"area", "intent"})
	r.WizardSteps = f.NewCounterVec(prometheus.CounterOpts{
		Name: "cityops_wizard_steps_total",
		Help: "VLR wizard step transitions by resulting step",
	}, []string{"step"})
	r.MapErrors = f.NewCounterVec(prometheus.CounterOpts{
		Name: "cityops_map_errors_total",
		Help: "Map widget errors reported by browsers",
	}, []string{"kind"})
	r.ActivityWriteFails = f.NewCounter(prometheus.CounterOpts{
		Name: "cityops_activity_write_failures_total",
		Help: "Activity rows that could not be written",
	})
}

// RecordHTTPRequest records an HTTP request with its duration.
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordChatTurn counts a chat turn. An empty intent is recorded as "none".
func (r *Registry) RecordChatTurn(area, intent string) {
	if intent == "" {
		intent = "none"
	}
	r.ChatTurns.WithLabelValues(area, intent).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Prometheus returns the underlying Prometheus registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}
