package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authorization outcomes.
const (
	OutcomeAllowed         = "allowed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
	OutcomeError           = "error"
)

// Session resolution sources.
const (
	SourceCache     = "cache"
	SourceStore     = "store"
	SourceAnonymous = "anonymous"
	SourceError     = "error"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AuthzDecisionsTotal     *prometheus.CounterVec
	SessionResolutionsTotal *prometheus.CounterVec
	RoleMutationsTotal      *prometheus.CounterVec
	RoleChangesApplied      prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clubd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubd_authz_decisions_total",
				Help: "Authorization gate decisions by outcome",
			},
			[]string{"outcome"},
		),
		SessionResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubd_session_resolutions_total",
				Help: "Session identity resolutions by source",
			},
			[]string{"source"},
		),
		RoleMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubd_role_mutations_total",
				Help: "Role mutation requests by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		RoleChangesApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clubd_role_changes_applied_total",
				Help: "Individual role assignments committed",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.SessionResolutionsTotal,
		m.RoleMutationsTotal,
		m.RoleChangesApplied,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAuthz(outcome string) {
	if m == nil {
		return
	}
	m.AuthzDecisionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSession(source string) {
	if m == nil {
		return
	}
	m.SessionResolutionsTotal.WithLabelValues(source).Inc()
}

// ObserveRoleMutation records a mutation attempt and, when applied, its size.
func (m *Metrics) ObserveRoleMutation(kind, outcome string, applied int) {
	if m == nil {
		return
	}
	m.RoleMutationsTotal.WithLabelValues(kind, outcome).Inc()
	if applied > 0 {
		m.RoleChangesApplied.Add(float64(applied))
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
