package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		kind      ErrorKind
		retryable bool
	}{
		{http.StatusBadRequest, KindBadRequest, false},
		{http.StatusUnauthorized, KindInvalidKey, false},
		{http.StatusForbidden, KindQuotaExceeded, false},
		{http.StatusNotFound, KindNotFound, false},
		{http.StatusTooManyRequests, KindRateLimited, false},
		{http.StatusInternalServerError, KindServer, true},
		{http.StatusBadGateway, KindServer, true},
		{http.StatusTeapot, KindHTTP, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP %d", tt.status), func(t *testing.T) {
			err := ClassifyStatus("finnhub", tt.status, nil)
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, tt.retryable, err.Retryable())
			assert.Equal(t, tt.retryable, ShouldRetry(err))
		})
	}
}

func TestClassifyStatus_AttachesDetail(t *testing.T) {
	err := ClassifyStatus("finnhub", 400, []byte(`{"error":"Invalid symbol"}`))
	assert.Equal(t, "Bad request: Invalid symbol", err.Error())

	err = ClassifyStatus("coingecko", 400, []byte(`{"status":{"error_code":400,"error_message":"bad vs"}}`))
	assert.Equal(t, "bad vs", err.Detail)

	err = ClassifyStatus("x", 400, []byte("plain text failure"))
	assert.Equal(t, "plain text failure", err.Detail)
}

func TestAPIError_SentinelMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ClassifyStatus("finnhub", 401, nil))

	assert.True(t, errors.Is(err, ErrInvalidKey))
	assert.False(t, errors.Is(err, ErrQuotaExceeded))
	assert.True(t, IsKind(err, KindInvalidKey))
}

func TestShouldRetry_UntypedErrors(t *testing.T) {
	assert.True(t, ShouldRetry(errors.New("network unreachable")))
	assert.True(t, ShouldRetry(errors.New("i/o timeout")))
	assert.False(t, ShouldRetry(errors.New("invalid symbol")))
	assert.False(t, ShouldRetry(nil))
	assert.True(t, ShouldRetry(NewNetworkError("p", errors.New("dial"))))
	assert.False(t, ShouldRetry(NewRateLimitError("p", time.Second)))
}

func TestNewRateLimitError_Message(t *testing.T) {
	err := NewRateLimitError("alphavantage", 1500*time.Millisecond)
	assert.Contains(t, err.Error(), "wait 2 seconds")
	assert.Equal(t, 1500*time.Millisecond, err.RetryAfter)
	assert.Equal(t, "rate_limited", err.KindName())
}
