package logging

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Fields are structured key/value pairs attached to a log entry
type Fields map[string]interface{}

// LogLevel is the severity of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// Standard fields
const (
	FieldRequestID  = "request_id"
	FieldService    = "service"
	FieldVersion    = "version"
	FieldDomain     = "domain"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldDuration   = "duration_ms"
	FieldStatusCode = "status_code"
)

// HTTP fields
const (
	FieldHTTPMethod     = "http_method"
	FieldHTTPPath       = "http_path"
	FieldHTTPStatusCode = "http_status_code"
	FieldHTTPUserAgent  = "http_user_agent"
	FieldHTTPRemoteIP   = "http_remote_ip"
)

// External API fields
const (
	FieldProvider         = "provider"
	FieldExternalEndpoint = "external_endpoint"
	FieldExternalMethod   = "external_method"
	FieldExternalStatus   = "external_status_code"
	FieldExternalDuration = "external_duration_ms"
	FieldAttempt          = "attempt"
	FieldMaxAttempts      = "max_attempts"
	FieldDelay            = "delay_ms"
)

// Cache fields
const (
	FieldCacheOperation = "cache_operation"
	FieldCacheKey       = "cache_key"
	FieldCacheHit       = "cache_hit"
	FieldCacheTTL       = "cache_ttl_seconds"
)

// Dashboard fields
const (
	FieldWidgetID   = "widget_id"
	FieldDataSource = "data_source"
	FieldSequence   = "sequence"
	FieldSymbols    = "symbols"
	FieldClientIP   = "client_ip"
)

const (
	CacheOpGet    = "GET"
	CacheOpSet    = "SET"
	CacheOpDelete = "DELETE"
	CacheOpClear  = "CLEAR"
)

// FieldBuilder assembles Fields fluently
type FieldBuilder struct {
	fields Fields
}

func NewFieldBuilder() *FieldBuilder {
	return &FieldBuilder{fields: make(Fields)}
}

func (fb *FieldBuilder) WithError(err error) *FieldBuilder {
	if err != nil {
		fb.fields[FieldError] = err.Error()
		fb.fields[FieldErrorType] = getErrorType(err)
	}
	return fb
}

func (fb *FieldBuilder) WithDuration(duration time.Duration) *FieldBuilder {
	fb.fields[FieldDuration] = durationMs(duration)
	return fb
}

func (fb *FieldBuilder) WithHTTPInfo(method, path string, statusCode int) *FieldBuilder {
	fb.fields[FieldHTTPMethod] = method
	fb.fields[FieldHTTPPath] = path
	if statusCode > 0 {
		fb.fields[FieldHTTPStatusCode] = statusCode
	}
	return fb
}

func (fb *FieldBuilder) WithExternalAPI(provider, endpoint string, statusCode int, duration time.Duration) *FieldBuilder {
	fb.fields[FieldProvider] = provider
	fb.fields[FieldExternalEndpoint] = endpoint
	if statusCode > 0 {
		fb.fields[FieldExternalStatus] = statusCode
	}
	fb.fields[FieldExternalDuration] = durationMs(duration)
	return fb
}

func (fb *FieldBuilder) WithCache(operation, key string, hit bool) *FieldBuilder {
	fb.fields[FieldCacheOperation] = operation
	fb.fields[FieldCacheKey] = key
	fb.fields[FieldCacheHit] = hit
	return fb
}

func (fb *FieldBuilder) WithWidget(widgetID, dataSource string) *FieldBuilder {
	fb.fields[FieldWidgetID] = widgetID
	if dataSource != "" {
		fb.fields[FieldDataSource] = dataSource
	}
	return fb
}

func (fb *FieldBuilder) WithCustomField(key string, value interface{}) *FieldBuilder {
	if key != "" && value != nil {
		fb.fields[key] = value
	}
	return fb
}

// Build returns the assembled fields, or nil when empty
func (fb *FieldBuilder) Build() Fields {
	if len(fb.fields) == 0 {
		return nil
	}
	return fb.fields
}

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	StartTimeKey contextKey = "start_time"
	RemoteIPKey  contextKey = "remote_ip"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, StartTimeKey, startTime)
}

func WithRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return context.WithValue(ctx, RemoteIPKey, remoteIP)
}

func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func GetStartTime(ctx context.Context) time.Time {
	if ctx == nil {
		return time.Time{}
	}
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}

func GetRemoteIP(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if remoteIP, ok := ctx.Value(RemoteIPKey).(string); ok {
		return remoteIP
	}
	return ""
}

// kinder is implemented by typed errors that expose a classification
type kinder interface {
	KindName() string
}

// getErrorType extracts a short error classification for logs
func getErrorType(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.KindName()
	}
	return fmt.Sprintf("%T", err)
}

func durationMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
