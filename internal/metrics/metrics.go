// Package metrics provides Prometheus metrics for the file browser client
// and its reference server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Client API calls
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_api_requests_total",
			Help: "Total API calls made by the client, by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filebrowser_api_request_duration_seconds",
			Help:    "Client API call duration in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	apiRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_api_retries_total",
			Help: "Total retried client API attempts",
		},
		[]string{"endpoint"},
	)

	// Session state machine
	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_session_transitions_total",
			Help: "Session phase transitions",
		},
		[]string{"from", "to"},
	)

	staleNavigationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filebrowser_stale_navigations_total",
			Help: "Listing responses discarded because a newer navigation was issued",
		},
	)

	subscriberDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filebrowser_subscriber_drops_total",
			Help: "State snapshots dropped for slow subscribers",
		},
	)

	// Server
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filebrowser_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_auth_attempts_total",
			Help: "Total login attempts",
		},
		[]string{"result"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filebrowser_active_sessions",
			Help: "Number of live server-side sessions",
		},
	)

	listingsServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_listings_served_total",
			Help: "Directory listings served, by result",
		},
		[]string{"result"},
	)

	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filebrowser_storage_operation_duration_seconds",
			Help:    "Storage backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_storage_operations_total",
			Help: "Total storage backend operations",
		},
		[]string{"backend", "operation", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest records one client API call.
func RecordAPIRequest(endpoint, outcome string, duration time.Duration) {
	apiRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	apiRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAPIRetry records a retried client attempt.
func RecordAPIRetry(endpoint string) {
	apiRetriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordSessionTransition records a phase change.
func RecordSessionTransition(from, to string) {
	sessionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordStaleNavigation records a discarded listing response.
func RecordStaleNavigation() {
	staleNavigationsTotal.Inc()
}

// RecordSubscriberDrop records a snapshot dropped for a slow subscriber.
func RecordSubscriberDrop() {
	subscriberDropsTotal.Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthAttempt records a login attempt.
func RecordAuthAttempt(success bool) {
	authAttemptsTotal.WithLabelValues(result(success, "success", "failure")).Inc()
}

// SetActiveSessions sets the number of live sessions.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// RecordListing records a served listing. result is ok, not_found,
// bad_request or error.
func RecordListing(res string) {
	listingsServedTotal.WithLabelValues(res).Inc()
}

// RecordStorageOperation records a storage backend call.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	storageOperationsTotal.WithLabelValues(backend, operation, result(success, "success", "error")).Inc()
}

func result(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// routeLabel collapses listing paths so the label set stays bounded.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/api/files") {
		return "/api/files"
	}
	switch path {
	case "/api/login", "/api/logout", "/health", "/metrics":
		return path
	}
	return "other"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), rw.statusCode, time.Since(start))
	})
}
