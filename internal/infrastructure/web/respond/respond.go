// Package respond writes JSON bodies for handlers and middleware
package respond

import (
	"context"
	"encoding/json"
	"net/http"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/infrastructure/logging"
)

// Error codes
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnknownSource   = "UNKNOWN_SOURCE"
	CodeUpstream        = "UPSTREAM_ERROR"
	CodeUpstreamLimited = "UPSTREAM_RATE_LIMITED"
	CodeRetryExhausted  = "RETRY_LIMIT_REACHED"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// JSON writes data with the status code
func JSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.ErrorWithError(ctx, "Failed to encode JSON response", err, logging.Fields{
			"status_code": statusCode,
		})
	}
}

// Error writes the {"error":{"code","message"}} envelope
func Error(ctx context.Context, w http.ResponseWriter, statusCode int, code, message string) {
	JSON(ctx, w, statusCode, dto.NewErrorResponse(code, message))
}
