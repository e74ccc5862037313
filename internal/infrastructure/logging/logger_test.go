package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level LogLevel) (*StructuredLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l, err := NewStructuredLogger(NewConfig("finboard-test", "test", "testing").
		WithLevel(level).
		WithOutput(buf))
	require.NoError(t, err)
	return l, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &out))
	return out
}

func TestStructuredLogger_WritesJSONWithContext(t *testing.T) {
	l, buf := newBufferLogger(t, LevelDebug)

	ctx := WithRequestID(context.Background(), "req-123")
	l.Info(ctx, "hello", Fields{FieldProvider: "finnhub"})

	entry := decodeLine(t, buf)
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "req-123", entry[FieldRequestID])
	assert.Equal(t, "finnhub", entry[FieldProvider])
	assert.Equal(t, "finboard-test", entry[FieldService])
}

func TestStructuredLogger_RespectsLevel(t *testing.T) {
	l, buf := newBufferLogger(t, LevelWarn)

	l.Info(context.Background(), "skipped", nil)
	assert.Empty(t, buf.String())

	l.SetLevel(LevelDebug)
	l.Debug(context.Background(), "kept", nil)
	assert.Contains(t, buf.String(), "kept")
	assert.Equal(t, LevelDebug, l.GetLevel())
}

func TestStructuredLogger_WithErrorDoesNotMutateFields(t *testing.T) {
	l, buf := newBufferLogger(t, LevelDebug)

	fields := Fields{"a": 1}
	l.WarnWithError(context.Background(), "boom", errors.New("bad"), fields)

	entry := decodeLine(t, buf)
	assert.Equal(t, "bad", entry[FieldError])
	assert.NotContains(t, fields, FieldError)
}

func TestDomainLogger_TagsDomain(t *testing.T) {
	l, buf := newBufferLogger(t, LevelDebug)
	wl := NewWidgetLogger(l)

	wl.RefreshSucceeded(context.Background(), "w1", "stocks", 4, 15*time.Millisecond)

	entry := decodeLine(t, buf)
	assert.Equal(t, "widgets", entry[FieldDomain])
	assert.Equal(t, "w1", entry[FieldWidgetID])
	assert.Equal(t, float64(4), entry[FieldSequence])
	assert.Equal(t, "widgets", wl.Domain())
}

func TestLoggerConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Level = "LOUD"
	var cfgErr *ConfigError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Equal(t, "level", cfgErr.Field)

	cfg = DefaultConfig().WithOutput(nil)
	assert.Error(t, cfg.Validate())
}

func TestLevelAndFormatParsing(t *testing.T) {
	assert.Equal(t, LevelDebug, LogLevelFromString("debug"))
	assert.Equal(t, LevelWarn, LogLevelFromString("WARNING"))
	assert.Equal(t, LevelInfo, LogLevelFromString("verbose"))
	assert.Equal(t, FormatText, LogFormatFromString("TEXT"))
	assert.Equal(t, FormatJSON, LogFormatFromString("yaml"))
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.NotEqual(t, a, b)
	assert.Len(t, GenerateShortRequestID(), 8)
}
