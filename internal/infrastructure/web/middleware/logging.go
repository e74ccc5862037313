package middleware

import (
	"net/http"
	"strings"

	"finboard-service/internal/infrastructure/logging"
)

const maxBodyBytes = 1 << 20

var importantHeaders = []string{
	"Content-Type",
	"Accept",
	"Accept-Encoding",
	"Origin",
	"X-Forwarded-For",
	"X-Real-IP",
}

var suspiciousPatterns = []string{
	"../",
	"<script",
	"union select",
	"drop table",
	"exec(",
	"eval(",
}

// LoggingMiddleware logs request details at debug level and flags requests
// that look like scans
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		logging.Debug(ctx, "Processing HTTP request", logging.Fields{
			"headers":        extractImportantHeaders(r),
			"content_length": r.ContentLength,
		})

		if reason := suspiciousReason(r); reason != "" {
			remoteIP := logging.GetRemoteIP(ctx)
			if remoteIP == "" {
				remoteIP = ClientIP(r)
			}
			logging.Warn(ctx, "Suspicious request", logging.Fields{
				"http_method": r.Method,
				"http_path":   r.URL.Path,
				"remote_ip":   remoteIP,
				"reason":      reason,
			})
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// extractImportantHeaders never includes auth headers
func extractImportantHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string)
	for _, header := range importantHeaders {
		if value := r.Header.Get(header); value != "" {
			headers[header] = value
		}
	}
	return headers
}

func suspiciousReason(r *http.Request) string {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(target, pattern) {
			return "pattern " + pattern
		}
	}
	if r.ContentLength > maxBodyBytes {
		return "oversized body"
	}
	return ""
}
