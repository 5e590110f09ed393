// Package metrics provides Prometheus metrics for the dashboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "support_dashboard"

// Metrics owns a private registry so several instances can coexist in tests.
// All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec

	Uploads         *prometheus.CounterVec
	QualityAnalyses *prometheus.CounterVec
	RefreshEvents   *prometheus.CounterVec
	StaleResponses  *prometheus.CounterVec

	SessionsActive   prometheus.Gauge
	WebsocketClients prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		BackendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend calls by service, endpoint and outcome",
		}, []string{"service", "endpoint", "outcome"}),
		BackendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of backend calls",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		}, []string{"service", "endpoint"}),
		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads by kind and resulting status",
		}, []string{"kind", "status"}),
		QualityAnalyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_analyses_total",
			Help:      "Background quality-analysis submissions by outcome",
		}, []string{"outcome"}),
		RefreshEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_events_total",
			Help:      "Refresh events published by source type",
		}, []string{"source"}),
		StaleResponses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Panel responses discarded because a newer fetch was issued",
		}, []string{"panel"}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Dashboard sessions currently held in memory",
		}),
		WebsocketClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected panel-notification websockets",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveBackend(service, endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(service, endpoint, outcome).Inc()
	m.BackendLatency.WithLabelValues(service, endpoint).Observe(d.Seconds())
}

func (m *Metrics) Upload(kind, status string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) QualityAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.QualityAnalyses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Refresh(source string) {
	if m == nil {
		return
	}
	m.RefreshEvents.WithLabelValues(source).Inc()
}

func (m *Metrics) Stale(panel string) {
	if m == nil {
		return
	}
	m.StaleResponses.WithLabelValues(panel).Inc()
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

func (m *Metrics) WebsocketDelta(d float64) {
	if m == nil {
		return
	}
	m.WebsocketClients.Add(d)
}
