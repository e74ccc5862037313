package logging

import (
	"context"
	"time"
)

// BaseDomainLogger adds the domain field to every entry
type BaseDomainLogger struct {
	Logger
	domain string
}

func (dl *BaseDomainLogger) Domain() string {
	return dl.domain
}

func (dl *BaseDomainLogger) tag(fields Fields) Fields {
	tagged := make(Fields, len(fields)+1)
	for k, v := range fields {
		tagged[k] = v
	}
	tagged[FieldDomain] = dl.domain
	return tagged
}

func (dl *BaseDomainLogger) Debug(ctx context.Context, message string, fields Fields) {
	dl.Logger.Debug(ctx, message, dl.tag(fields))
}

func (dl *BaseDomainLogger) Info(ctx context.Context, message string, fields Fields) {
	dl.Logger.Info(ctx, message, dl.tag(fields))
}

func (dl *BaseDomainLogger) Warn(ctx context.Context, message string, fields Fields) {
	dl.Logger.Warn(ctx, message, dl.tag(fields))
}

func (dl *BaseDomainLogger) Error(ctx context.Context, message string, fields Fields) {
	dl.Logger.Error(ctx, message, dl.tag(fields))
}

func (dl *BaseDomainLogger) InfoWithError(ctx context.Context, message string, err error, fields Fields) {
	dl.Logger.InfoWithError(ctx, message, err, dl.tag(fields))
}

func (dl *BaseDomainLogger) WarnWithError(ctx context.Context, message string, err error, fields Fields) {
	dl.Logger.WarnWithError(ctx, message, err, dl.tag(fields))
}

func (dl *BaseDomainLogger) ErrorWithError(ctx context.Context, message string, err error, fields Fields) {
	dl.Logger.ErrorWithError(ctx, message, err, dl.tag(fields))
}

// HTTPDomainLogger logs inbound requests
type HTTPDomainLogger struct {
	*BaseDomainLogger
}

func NewHTTPLogger(base Logger) HTTPLogger {
	return &HTTPDomainLogger{&BaseDomainLogger{Logger: base, domain: "http"}}
}

func (hl *HTTPDomainLogger) RequestCompleted(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	fields := NewFieldBuilder().
		WithHTTPInfo(method, path, statusCode).
		WithDuration(duration).
		Build()

	switch {
	case statusCode >= 500:
		hl.Error(ctx, "HTTP request completed", fields)
	case statusCode >= 400:
		hl.Warn(ctx, "HTTP request completed", fields)
	default:
		hl.Info(ctx, "HTTP request completed", fields)
	}
}

func (hl *HTTPDomainLogger) RequestFailed(ctx context.Context, method, path string, statusCode int, err error, duration time.Duration) {
	fields := NewFieldBuilder().
		WithHTTPInfo(method, path, statusCode).
		WithDuration(duration).
		Build()

	hl.ErrorWithError(ctx, "HTTP request failed", err, fields)
}

// ExternalAPIDomainLogger logs provider calls
type ExternalAPIDomainLogger struct {
	*BaseDomainLogger
}

func NewExternalAPILogger(base Logger) ExternalAPILogger {
	return &ExternalAPIDomainLogger{&BaseDomainLogger{Logger: base, domain: "external_api"}}
}

func (el *ExternalAPIDomainLogger) RequestCompleted(ctx context.Context, provider, endpoint string, statusCode int, duration time.Duration) {
	fields := NewFieldBuilder().
		WithExternalAPI(provider, endpoint, statusCode, duration).
		Build()

	el.Debug(ctx, "External API request completed", fields)
}

func (el *ExternalAPIDomainLogger) RequestFailed(ctx context.Context, provider, endpoint string, statusCode int, err error, duration time.Duration) {
	fields := NewFieldBuilder().
		WithExternalAPI(provider, endpoint, statusCode, duration).
		Build()

	el.WarnWithError(ctx, "External API request failed", err, fields)
}

func (el *ExternalAPIDomainLogger) RetryScheduled(ctx context.Context, provider, endpoint string, attempt, maxAttempts uint, err error) {
	fields := NewFieldBuilder().
		WithCustomField(FieldProvider, provider).
		WithCustomField(FieldExternalEndpoint, endpoint).
		WithCustomField(FieldAttempt, attempt).
		WithCustomField(FieldMaxAttempts, maxAttempts).
		Build()

	el.WarnWithError(ctx, "Retrying external API request", err, fields)
}

func (el *ExternalAPIDomainLogger) FallbackActivated(ctx context.Context, from, to string, err error) {
	fields := NewFieldBuilder().
		WithCustomField("primary", from).
		WithCustomField("fallback", to).
		Build()

	el.WarnWithError(ctx, "Primary provider failed, using fallback", err, fields)
}

// CacheDomainLogger logs cache activity
type CacheDomainLogger struct {
	*BaseDomainLogger
}

func NewCacheLogger(base Logger) CacheLogger {
	return &CacheDomainLogger{&BaseDomainLogger{Logger: base, domain: "cache"}}
}

func (cl *CacheDomainLogger) Hit(ctx context.Context, key string, operation string) {
	cl.Debug(ctx, "Cache hit", NewFieldBuilder().WithCache(operation, key, true).Build())
}

func (cl *CacheDomainLogger) Miss(ctx context.Context, key string, operation string) {
	cl.Debug(ctx, "Cache miss", NewFieldBuilder().WithCache(operation, key, false).Build())
}

func (cl *CacheDomainLogger) Set(ctx context.Context, key string, ttl time.Duration) {
	fields := NewFieldBuilder().
		WithCache(CacheOpSet, key, false).
		WithCustomField(FieldCacheTTL, ttl.Seconds()).
		Build()

	cl.Debug(ctx, "Cache entry stored", fields)
}

func (cl *CacheDomainLogger) CacheError(ctx context.Context, operation, key string, err error) {
	fields := NewFieldBuilder().
		WithCustomField(FieldCacheOperation, operation).
		WithCustomField(FieldCacheKey, key).
		Build()

	cl.ErrorWithError(ctx, "Cache operation failed", err, fields)
}

// WidgetDomainLogger logs widget refresh lifecycle events
type WidgetDomainLogger struct {
	*BaseDomainLogger
}

func NewWidgetLogger(base Logger) WidgetLogger {
	return &WidgetDomainLogger{&BaseDomainLogger{Logger: base, domain: "widgets"}}
}

func (wl *WidgetDomainLogger) RefreshStarted(ctx context.Context, widgetID, dataSource string, seq uint64) {
	fields := NewFieldBuilder().
		WithWidget(widgetID, dataSource).
		WithCustomField(FieldSequence, seq).
		Build()

	wl.Debug(ctx, "Widget refresh started", fields)
}

func (wl *WidgetDomainLogger) RefreshSucceeded(ctx context.Context, widgetID, dataSource string, seq uint64, duration time.Duration) {
	fields := NewFieldBuilder().
		WithWidget(widgetID, dataSource).
		WithCustomField(FieldSequence, seq).
		WithDuration(duration).
		Build()

	wl.Info(ctx, "Widget refreshed", fields)
}

func (wl *WidgetDomainLogger) RefreshFailed(ctx context.Context, widgetID, dataSource string, seq uint64, err error) {
	fields := NewFieldBuilder().
		WithWidget(widgetID, dataSource).
		WithCustomField(FieldSequence, seq).
		Build()

	wl.WarnWithError(ctx, "Widget refresh failed", err, fields)
}

func (wl *WidgetDomainLogger) StaleResultDiscarded(ctx context.Context, widgetID string, seq uint64) {
	fields := NewFieldBuilder().
		WithWidget(widgetID, "").
		WithCustomField(FieldSequence, seq).
		Build()

	wl.Debug(ctx, "Discarded stale widget result", fields)
}
