package logging

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// StructuredLogger implements Logger on top of logrus
type StructuredLogger struct {
	config *LoggerConfig
	entry  *logrus.Logger
}

// NewStructuredLogger creates a logrus backed structured logger
func NewStructuredLogger(config *LoggerConfig) (*StructuredLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	l := logrus.New()
	l.SetOutput(config.Output)
	switch config.Format {
	case FormatText:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}
	l.SetLevel(toLogrusLevel(config.Level))

	return &StructuredLogger{config: config, entry: l}, nil
}

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (sl *StructuredLogger) log(ctx context.Context, level LogLevel, message string, fields Fields) {
	lvl := toLogrusLevel(level)
	if !sl.entry.IsLevelEnabled(lvl) {
		return
	}

	data := logrus.Fields{
		FieldService: sl.config.Service,
	}
	if sl.config.Version != "" {
		data[FieldVersion] = sl.config.Version
	}
	if sl.config.Environment != "" {
		data["environment"] = sl.config.Environment
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		data[FieldRequestID] = requestID
	}
	if startTime := GetStartTime(ctx); !startTime.IsZero() {
		if _, ok := fields[FieldDuration]; !ok {
			data[FieldDuration] = durationMs(time.Since(startTime))
		}
	}
	if sl.config.AddSource {
		if source := callerName(); source != "" {
			data["source"] = source
		}
	}
	for k, v := range fields {
		data[k] = v
	}

	sl.entry.WithFields(data).Log(lvl, message)
}

// callerName returns the function that called the public logging method
func callerName() string {
	// runtime.Caller, callerName, log, public method
	const skip = 4
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}
	return name
}

func (sl *StructuredLogger) Debug(ctx context.Context, message string, fields Fields) {
	sl.log(ctx, LevelDebug, message, fields)
}

func (sl *StructuredLogger) Info(ctx context.Context, message string, fields Fields) {
	sl.log(ctx, LevelInfo, message, fields)
}

func (sl *StructuredLogger) Warn(ctx context.Context, message string, fields Fields) {
	sl.log(ctx, LevelWarn, message, fields)
}

func (sl *StructuredLogger) Error(ctx context.Context, message string, fields Fields) {
	sl.log(ctx, LevelError, message, fields)
}

func (sl *StructuredLogger) InfoWithError(ctx context.Context, message string, err error, fields Fields) {
	sl.log(ctx, LevelInfo, message, withError(fields, err))
}

func (sl *StructuredLogger) WarnWithError(ctx context.Context, message string, err error, fields Fields) {
	sl.log(ctx, LevelWarn, message, withError(fields, err))
}

func (sl *StructuredLogger) ErrorWithError(ctx context.Context, message string, err error, fields Fields) {
	sl.log(ctx, LevelError, message, withError(fields, err))
}

// withError copies fields and adds the error details
func withError(fields Fields, err error) Fields {
	if err == nil {
		return fields
	}
	enriched := make(Fields, len(fields)+2)
	for k, v := range fields {
		enriched[k] = v
	}
	enriched[FieldError] = err.Error()
	enriched[FieldErrorType] = getErrorType(err)
	return enriched
}

func (sl *StructuredLogger) SetLevel(level LogLevel) {
	sl.config.Level = level
	sl.entry.SetLevel(toLogrusLevel(level))
}

func (sl *StructuredLogger) GetLevel() LogLevel {
	return sl.config.Level
}

// Logrus exposes the underlying logrus logger for libraries that need one
func (sl *StructuredLogger) Logrus() *logrus.Logger {
	return sl.entry
}
