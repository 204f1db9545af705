package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Tenant resolution metrics
	tenantResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_resolutions_total",
			Help: "Total number of tenant resolution attempts",
		},
		[]string{"source", "outcome"},
	)

	// Grant lifecycle metrics
	grantTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grant_transitions_total",
			Help: "Total number of access grant state transitions",
		},
		[]string{"transition", "outcome"},
	)

	grantsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grants_swept_total",
			Help: "Total number of approved grants expired by the sweep",
		},
	)

	// Cross-organization gate metrics
	crossOrgChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_org_checks_total",
			Help: "Total number of cross-organization access checks",
		},
		[]string{"mode", "outcome"},
	)

	// Notification metrics
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		tenantResolutionsTotal,
		grantTransitionsTotal,
		grantsSweptTotal,
		crossOrgChecksTotal,
		notificationsTotal,
	)
}

// RecordTenantResolution records a tenant resolution attempt by signal
// source and outcome
func RecordTenantResolution(source, outcome string) {
	tenantResolutionsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordGrantTransition records a grant state transition attempt
func RecordGrantTransition(transition, outcome string) {
	grantTransitionsTotal.WithLabelValues(transition, outcome).Inc()
}

// RecordSweep records the number of grants expired by a sweep run
func RecordSweep(count int64) {
	grantsSweptTotal.Add(float64(count))
}

// RecordCrossOrgCheck records a cross-organization gate decision
func RecordCrossOrgCheck(mode, outcome string) {
	crossOrgChecksTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordNotification records a notification delivery attempt
func RecordNotification(kind, outcome string) {
	notificationsTotal.WithLabelValues(kind, outcome).Inc()
}

// MetricsHandler returns the Prometheus metrics HTTP handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
