package dto

import (
	"time"

	"finboard-service/internal/application/widgets"
	"finboard-service/internal/domain/entities"
)

// ErrorBody carries a machine code and the message shown to the user
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope of every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds an error envelope
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Code: code, Message: message}}
}

// DataResponse wraps the normalized payload of one data source
type DataResponse struct {
	Source    string    `json:"source"`
	Data      any       `json:"data"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// WidgetListResponse lists the dashboard in display order
type WidgetListResponse struct {
	Widgets []entities.Widget `json:"widgets"`
	Counts  map[string]int    `json:"counts"`
}

// ValidationResponse is returned by /connections/validate
type ValidationResponse = entities.ValidationResult

// ProviderHealthResponse reports each built-in provider
type ProviderHealthResponse struct {
	Providers map[string]entities.ProviderHealth `json:"providers"`
	CheckedAt time.Time                          `json:"checkedAt"`
}

// ImportResponse reports a layout import
type ImportResponse struct {
	Success       bool   `json:"success"`
	ImportedCount int    `json:"importedCount"`
	Message       string `json:"message"`
}

// HealthResponse represents the health check response with service status
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// StreamMessage is pushed to websocket clients on every widget change
type StreamMessage struct {
	Type      string           `json:"type"`
	WidgetID  string           `json:"widgetId,omitempty"`
	Widget    *entities.Widget `json:"widget,omitempty"`
	Order     []string         `json:"order,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// TemplateListResponse lists the dashboard presets
type TemplateListResponse struct {
	Templates   []widgets.Template         `json:"templates"`
	Categories  []widgets.TemplateCategory `json:"categories"`
	Suggestions []widgets.Template         `json:"suggestions"`
}

// ApplyTemplateResponse is the dashboard after a preset was applied
type ApplyTemplateResponse struct {
	Template string            `json:"template"`
	Widgets  []entities.Widget `json:"widgets"`
}
