package logging

import (
	"context"
	"fmt"
	"sync"
)

// LoggerSet bundles the base logger with its domain loggers
type LoggerSet struct {
	Base        Logger
	HTTP        HTTPLogger
	ExternalAPI ExternalAPILogger
	Cache       CacheLogger
	Widgets     WidgetLogger
}

// NewLoggerSet builds a base logger and every domain logger on top of it
func NewLoggerSet(config *LoggerConfig) (*LoggerSet, error) {
	base, err := NewStructuredLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create base logger: %w", err)
	}
	return &LoggerSet{
		Base:        base,
		HTTP:        NewHTTPLogger(base),
		ExternalAPI: NewExternalAPILogger(base),
		Cache:       NewCacheLogger(base),
		Widgets:     NewWidgetLogger(base),
	}, nil
}

var (
	globalMu      sync.RWMutex
	globalLoggers *LoggerSet
)

// InitializeGlobalLoggers replaces the process wide loggers
func InitializeGlobalLoggers(config *LoggerConfig) error {
	set, err := NewLoggerSet(config)
	if err != nil {
		return fmt.Errorf("failed to initialize global loggers: %w", err)
	}
	globalMu.Lock()
	globalLoggers = set
	globalMu.Unlock()
	return nil
}

// GetGlobalLoggers returns the process wide loggers, creating defaults on first use
func GetGlobalLoggers() *LoggerSet {
	globalMu.RLock()
	set := globalLoggers
	globalMu.RUnlock()
	if set != nil {
		return set
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLoggers == nil {
		globalLoggers, _ = NewLoggerSet(DefaultConfig())
	}
	return globalLoggers
}

func GetGlobalLogger() Logger {
	return GetGlobalLoggers().Base
}

// SetGlobalLogLevel updates the level of the process wide loggers
func SetGlobalLogLevel(level LogLevel) {
	GetGlobalLoggers().Base.SetLevel(level)
}

func Debug(ctx context.Context, message string, fields Fields) {
	GetGlobalLogger().Debug(ctx, message, fields)
}

func Info(ctx context.Context, message string, fields Fields) {
	GetGlobalLogger().Info(ctx, message, fields)
}

func Warn(ctx context.Context, message string, fields Fields) {
	GetGlobalLogger().Warn(ctx, message, fields)
}

func Error(ctx context.Context, message string, fields Fields) {
	GetGlobalLogger().Error(ctx, message, fields)
}

func InfoWithError(ctx context.Context, message string, err error, fields Fields) {
	GetGlobalLogger().InfoWithError(ctx, message, err, fields)
}

func WarnWithError(ctx context.Context, message string, err error, fields Fields) {
	GetGlobalLogger().WarnWithError(ctx, message, err, fields)
}

func ErrorWithError(ctx context.Context, message string, err error, fields Fields) {
	GetGlobalLogger().ErrorWithError(ctx, message, err, fields)
}

func HTTP() HTTPLogger {
	return GetGlobalLoggers().HTTP
}

func ExternalAPI() ExternalAPILogger {
	return GetGlobalLoggers().ExternalAPI
}

func Cache() CacheLogger {
	return GetGlobalLoggers().Cache
}

func Widgets() WidgetLogger {
	return GetGlobalLoggers().Widgets
}
