package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics
var (
	// SubmissionsTotal counts form submissions by form and outcome
	// (accepted or the rejection kind).
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formgate_submissions_total",
			Help: "Form submissions by form and outcome.",
		},
		[]string{"form", "outcome"},
	)

	// RateLimitedTotal counts requests rejected by a fixed-window limiter.
	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formgate_rate_limited_total",
			Help: "Requests rejected by the per-endpoint rate limiter.",
		},
		[]string{"scope"},
	)

	// AdminAuthTotal counts admin authorization attempts by method and outcome.
	AdminAuthTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formgate_admin_auth_total",
			Help: "Admin authentication attempts by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	// StoredRecords reports how many records each in-memory store holds.
	StoredRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "formgate_stored_records",
			Help: "Records currently held in memory by form.",
		},
		[]string{"form"},
	)

	// ActiveSessions reports live admin sessions.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "formgate_admin_sessions",
		Help: "Admin sessions currently held in memory.",
	})
)

var initOnce sync.Once

// Init registers all metrics with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			SubmissionsTotal, RateLimitedTotal, AdminAuthTotal, StoredRecords, ActiveSessions,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests. routePattern, when
// non-nil, is asked for the matched route after the request is served so
// labels stay bounded; otherwise CanonicalPath is used.
func Instrument(routePattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := r.Method

			httpInFlight.Inc()
			defer httpInFlight.Dec()
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			path := ""
			if routePattern != nil {
				path = routePattern(r)
			}
			if path == "" {
				path = CanonicalPath(r.URL.Path)
			}
			status := strconv.Itoa(sw.code)

			httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		})
	}
}

var knownPaths = map[string]struct{}{
	"/":                          {},
	"/healthz":                   {},
	"/readyz":                    {},
	"/metrics":                   {},
	"/v1/info":                   {},
	"/api/csrf":                  {},
	"/api/waitlist":              {},
	"/api/contact":               {},
	"/api/admin/login":           {},
	"/api/admin/logout":          {},
	"/api/admin/session":         {},
	"/api/admin/waitlist/export": {},
}

// CanonicalPath maps a request path to a bounded label value: query strings
// and trailing slashes are dropped and unknown paths collapse to "other".
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	if _, ok := knownPaths[p]; ok {
		return p
	}
	return "other"
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
