package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RouteFunc names the route template of a request so label cardinality stays
// bounded. Returning "" falls back to the raw path.
type RouteFunc func(*http.Request) string

// MiddlewareConfig holds configuration for the HTTP metrics middleware.
type MiddlewareConfig struct {
	// SkipPaths are path prefixes that are not recorded.
	SkipPaths []string
	Route     RouteFunc
}

// DefaultMiddlewareConfig skips the health and scrape endpoints.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		SkipPaths: []string{"/metrics", "/healthz", "/readyz"},
	}
}

// Middleware records request counts, durations and in-flight requests.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range cfg.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			HTTPRequestsInFlight.Inc()
			defer HTTPRequestsInFlight.Dec()

			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(wrapped, r)

			route := r.URL.Path
			if cfg.Route != nil {
				if named := cfg.Route(r); named != "" {
					route = named
				}
			}
			HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
