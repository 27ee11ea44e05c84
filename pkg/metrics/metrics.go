package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portalgate_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portalgate_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	authResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portalgate_auth_resolutions_total",
		Help: "Auth gate outcomes by credential path",
	}, []string{"path", "outcome"})

	portalLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portalgate_portal_lookup_seconds",
		Help:    "Duration of app.info fallback lookups",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveResolution counts one auth gate decision. path is bearer|placement.
func ObserveResolution(path, outcome string) {
	authResolutions.WithLabelValues(path, outcome).Inc()
}

// ObservePortalLookup records an app.info call; result is ok|error|cached.
func ObservePortalLookup(result string, duration time.Duration) {
	portalLookupDuration.WithLabelValues(result).Observe(duration.Seconds())
}
