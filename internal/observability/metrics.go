// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the DevCollab Prometheus metrics. It satisfies the event
// recorder interfaces of the auth and project services.
type Metrics struct {
	AuthEventsTotal     *prometheus.CounterVec
	ProjectEventsTotal  *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ResetsSweptTotal    prometheus.Counter
}

// NewMetrics creates and registers the DevCollab metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devcollab_auth_events_total",
				Help: "Authentication events by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		ProjectEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devcollab_project_events_total",
				Help: "Project operations by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devcollab_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devcollab_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ResetsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "devcollab_password_resets_swept_total",
				Help: "Expired password reset records removed by the sweeper",
			},
		),
	}

	reg.MustRegister(
		m.AuthEventsTotal,
		m.ProjectEventsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ResetsSweptTotal,
	)
	return m
}

// RecordAuthEvent counts an authentication outcome.
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordProjectEvent counts a project operation outcome.
func (m *Metrics) RecordProjectEvent(action, outcome string) {
	m.ProjectEventsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordHTTPRequest counts a finished request and observes its latency.
// route is the matched route pattern, never the raw path.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordResetsSwept adds n removed reset records.
func (m *Metrics) RecordResetsSwept(n int64) {
	if n > 0 {
		m.ResetsSweptTotal.Add(float64(n))
	}
}
