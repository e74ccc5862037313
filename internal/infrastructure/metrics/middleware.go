package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// HTTPMetricsMiddleware collects HTTP metrics for Prometheus
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		wrapped := &responseWriterMetrics{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		RecordHTTPRequest(r.Method, routeLabel(r), wrapped.statusCode,
			time.Since(startTime).Seconds(), wrapped.written)
	})
}

type responseWriterMetrics struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriterMetrics) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriterMetrics) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack keeps websocket upgrades working behind the middleware
func (rw *responseWriterMetrics) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// routeLabel prefers the mux route template so ids never become labels
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath collapses unknown paths to a bounded label set
func normalizePath(path string) string {
	if path == "/" {
		return "/"
	}
	path = strings.TrimSuffix(path, "/")

	switch {
	case path == "/health", path == "/ready", path == "/metrics", path == "/ws":
		return path
	case strings.HasPrefix(path, "/api/v1/data/"):
		return "/api/v1/data/{source}"
	case strings.HasPrefix(path, "/api/v1/widgets"):
		return "/api/v1/widgets/*"
	case strings.HasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	default:
		return "/unknown"
	}
}
