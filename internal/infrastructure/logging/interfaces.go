package logging

import (
	"context"
	"time"
)

// Logger is the structured logging contract used across the service
type Logger interface {
	Debug(ctx context.Context, message string, fields Fields)
	Info(ctx context.Context, message string, fields Fields)
	Warn(ctx context.Context, message string, fields Fields)
	Error(ctx context.Context, message string, fields Fields)

	InfoWithError(ctx context.Context, message string, err error, fields Fields)
	WarnWithError(ctx context.Context, message string, err error, fields Fields)
	ErrorWithError(ctx context.Context, message string, err error, fields Fields)

	SetLevel(level LogLevel)
	GetLevel() LogLevel
}

// DomainLogger tags every entry with its domain
type DomainLogger interface {
	Logger
	Domain() string
}

// HTTPLogger logs inbound HTTP traffic
type HTTPLogger interface {
	DomainLogger

	RequestCompleted(ctx context.Context, method, path string, statusCode int, duration time.Duration)
	RequestFailed(ctx context.Context, method, path string, statusCode int, err error, duration time.Duration)
}

// ExternalAPILogger logs calls to market data providers
type ExternalAPILogger interface {
	DomainLogger

	RequestCompleted(ctx context.Context, provider, endpoint string, statusCode int, duration time.Duration)
	RequestFailed(ctx context.Context, provider, endpoint string, statusCode int, err error, duration time.Duration)
	RetryScheduled(ctx context.Context, provider, endpoint string, attempt, maxAttempts uint, err error)
	FallbackActivated(ctx context.Context, from, to string, err error)
}

// CacheLogger logs cache activity
type CacheLogger interface {
	DomainLogger

	Hit(ctx context.Context, key string, operation string)
	Miss(ctx context.Context, key string, operation string)
	Set(ctx context.Context, key string, ttl time.Duration)
	CacheError(ctx context.Context, operation, key string, err error)
}

// WidgetLogger logs dashboard refresh activity
type WidgetLogger interface {
	DomainLogger

	RefreshStarted(ctx context.Context, widgetID, dataSource string, seq uint64)
	RefreshSucceeded(ctx context.Context, widgetID, dataSource string, seq uint64, duration time.Duration)
	RefreshFailed(ctx context.Context, widgetID, dataSource string, seq uint64, err error)
	StaleResultDiscarded(ctx context.Context, widgetID string, seq uint64)
}
