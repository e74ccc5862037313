package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/application/refresh"
	"finboard-service/internal/application/services"
	"finboard-service/internal/application/widgets"
	"finboard-service/internal/infrastructure/apiclient"
	"finboard-service/internal/infrastructure/customapi"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/web/respond"
)

const internalErrorMessage = "Internal server error"

// statusFor maps an application error to its HTTP status and error code
func statusFor(err error) (int, string) {
	var apiErr *apiclient.APIError

	switch {
	case errors.Is(err, dto.ErrInvalidRequest),
		errors.Is(err, widgets.ErrInvalidWidget),
		errors.Is(err, widgets.ErrInvalidOrder):
		return http.StatusBadRequest, respond.CodeValidation
	case errors.Is(err, dto.ErrInvalidQuery),
		errors.Is(err, services.ErrCustomURLRequired),
		errors.Is(err, customapi.ErrInvalidURL),
		errors.Is(err, customapi.ErrBlockedDestination),
		errors.Is(err, refresh.ErrInvalidInterval):
		return http.StatusBadRequest, respond.CodeBadRequest
	case errors.Is(err, services.ErrUnknownSource):
		return http.StatusBadRequest, respond.CodeUnknownSource
	case errors.Is(err, widgets.ErrWidgetNotFound),
		errors.Is(err, widgets.ErrTemplateNotFound):
		return http.StatusNotFound, respond.CodeNotFound
	case errors.Is(err, widgets.ErrRetryBudgetExhausted):
		return http.StatusConflict, respond.CodeRetryExhausted
	case errors.Is(err, apiclient.ErrRateLimited):
		return http.StatusTooManyRequests, respond.CodeUpstreamLimited
	case errors.As(err, &apiErr),
		errors.Is(err, services.ErrAllStockSourcesFailed),
		errors.Is(err, services.ErrProviderUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, respond.CodeUpstream
	default:
		return http.StatusInternalServerError, respond.CodeInternal
	}
}

// writeError writes the error envelope. Internal errors are logged and their
// message is not exposed.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	message := err.Error()

	if status == http.StatusInternalServerError {
		logging.ErrorWithError(ctx, "Request failed", err, nil)
		message = internalErrorMessage
	}
	respond.Error(ctx, w, status, code, message)
}

// decodeJSON reads a single JSON document into dst
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", dto.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: malformed JSON: %v", dto.ErrInvalidRequest, err)
	}
	return nil
}
