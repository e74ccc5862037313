package middleware

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"finboard-service/internal/infrastructure/logging"
)

const requestIDHeader = "X-Request-ID"

// responseWriter captures the status code and body size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack lets /ws upgrade through the wrapper
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// RequestTracingMiddleware tags the request with an id, a start time and the
// client ip and logs its completion
func RequestTracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = logging.GenerateRequestID()
		}

		startTime := time.Now()
		remoteIP := ClientIP(r)
		ctx := logging.WithRequestID(r.Context(), requestID)
		ctx = logging.WithStartTime(ctx, startTime)
		ctx = logging.WithRemoteIP(ctx, remoteIP)

		w.Header().Set(requestIDHeader, requestID)
		wrapped := &responseWriter{ResponseWriter: w}

		logging.Debug(ctx, "HTTP request started", logging.Fields{
			"http_method":    r.Method,
			"http_path":      r.URL.Path,
			"user_agent":     r.UserAgent(),
			"content_length": r.ContentLength,
		})

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		status := wrapped.statusCode
		if status == 0 {
			status = http.StatusOK
		}
		logging.HTTP().RequestCompleted(ctx, r.Method, r.URL.Path, status, time.Since(startTime))
	})
}

// ClientIP extracts the client address, honouring proxy headers
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			xff = xff[:idx]
		}
		return strings.TrimSpace(xff)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
