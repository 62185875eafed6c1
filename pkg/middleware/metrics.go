package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/BronsonLau/NLP-Course/pkg/metrics"
)

// routes are the only path label values besides "other"; unknown paths
// would otherwise let a scanner blow up series cardinality.
var routes = map[string]bool{
	"/api/v1/search":           true,
	"/api/v1/terms":            true,
	"/api/v1/analytics":        true,
	"/api/v1/cache/stats":      true,
	"/api/v1/cache/invalidate": true,
	"/api/v1/index/rebuild":    true,
	"/health/live":             true,
	"/health/ready":            true,
}

func routeLabel(path string) string {
	if routes[path] {
		return path
	}
	return "other"
}

// Metrics records request count and latency per route and status, and the
// number of requests in flight.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			route := routeLabel(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		})
	}
}

// statusRecorder remembers the first status sent downstream.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) Status() int {
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.code == 0 {
		s.code = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.code == 0 {
		s.code = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
