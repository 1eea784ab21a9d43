package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"spc-catalog/internal/metrics"
)

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are path prefixes that are not recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics returns a middleware that records Prometheus HTTP metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w)
			start := time.Now()
			next.ServeHTTP(wrapped, r)

			path := normalizePath(r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// Routes whose trailing segments are identifiers or asset paths. Longest
// prefix first.
var pathTemplates = []struct {
	prefix   string
	template string
}{
	{"/api/thumbnail-url/", "/api/thumbnail-url/{path}"},
	{"/api/thumbnail/", "/api/thumbnail/{path}"},
	{"/api/products/", "/api/products/{slug}"},
	{"/assets/", "/assets/{path}"},
}

// normalizePath maps request paths onto route templates to keep label
// cardinality bounded.
func normalizePath(path string) string {
	for _, t := range pathTemplates {
		if strings.HasPrefix(path, t.prefix) {
			return t.template
		}
	}

	if rest, ok := strings.CutPrefix(path, "/api/certificates/"); ok {
		if strings.HasSuffix(rest, "/download") {
			return "/api/certificates/{id}/download"
		}
		return "/api/certificates/{id}"
	}

	// Unknown deep paths keep their first four segments.
	parts := strings.Split(path, "/")
	if len(parts) > 5 {
		return strings.Join(parts[:5], "/") + "/{path}"
	}
	return path
}
