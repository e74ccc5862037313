package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrorKind classifies a failed provider call
type ErrorKind string

const (
	KindRateLimited       ErrorKind = "rate_limited"
	KindInvalidKey        ErrorKind = "invalid_key"
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindNotFound          ErrorKind = "not_found"
	KindBadRequest        ErrorKind = "bad_request"
	KindServer            ErrorKind = "server_error"
	KindProvider          ErrorKind = "provider_error"
	KindNetwork           ErrorKind = "network_error"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindHTTP              ErrorKind = "http_error"
)

var (
	ErrRateLimited       = errors.New("rate limited")
	ErrInvalidKey        = errors.New("invalid api key")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrNotFound          = errors.New("not found")
	ErrBadRequest        = errors.New("bad request")
	ErrServer            = errors.New("server error")
	ErrProvider          = errors.New("provider error")
	ErrNetwork           = errors.New("network error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrHTTP              = errors.New("http error")
)

var kindSentinels = map[ErrorKind]error{
	KindRateLimited:       ErrRateLimited,
	KindInvalidKey:        ErrInvalidKey,
	KindQuotaExceeded:     ErrQuotaExceeded,
	KindNotFound:          ErrNotFound,
	KindBadRequest:        ErrBadRequest,
	KindServer:            ErrServer,
	KindProvider:          ErrProvider,
	KindNetwork:           ErrNetwork,
	KindMalformedResponse: ErrMalformedResponse,
	KindHTTP:              ErrHTTP,
}

// User facing messages
const (
	MsgRateLimit     = "API rate limit exceeded. Please try again later."
	MsgInvalidKey    = "Invalid API key. Please check your configuration."
	MsgQuotaExceeded = "API quota exceeded. Please upgrade your plan or try again later."
	MsgNotFound      = "Requested data not found."
	MsgServerError   = "Server error. Please try again later."
	MsgNetworkError  = "Network error. Please check your connection."
	MsgBadRequest    = "Bad request"
	MsgMissingKey    = "API key not configured"
)

// APIError is a classified provider failure
type APIError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Message    string
	Detail     string
	RetryAfter time.Duration
	Cause      error
}

// Error returns the human readable text shown on a failed widget
func (e *APIError) Error() string {
	if e.Detail != "" && e.Detail != e.Message {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind
func (e *APIError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindName is used by the logger to tag the error type
func (e *APIError) KindName() string {
	return string(e.Kind)
}

// Retryable reports whether backing off and trying again may succeed
func (e *APIError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// NewError creates a classified error
func NewError(provider string, kind ErrorKind, message string) *APIError {
	return &APIError{Kind: kind, Provider: provider, Message: message}
}

// NewRateLimitError is returned when the local window is saturated
func NewRateLimitError(provider string, wait time.Duration) *APIError {
	seconds := int(math.Ceil(wait.Seconds()))
	return &APIError{
		Kind:       KindRateLimited,
		Provider:   provider,
		Message:    fmt.Sprintf("Rate limit exceeded. Please wait %d seconds before making another request.", seconds),
		RetryAfter: wait,
	}
}

// NewNetworkError wraps a transport failure
func NewNetworkError(provider string, cause error) *APIError {
	return &APIError{
		Kind:     KindNetwork,
		Provider: provider,
		Message:  MsgNetworkError,
		Detail:   transportText(cause),
		Cause:    cause,
	}
}

// NewMalformedError reports a body that could not be decoded
func NewMalformedError(provider string, cause error) *APIError {
	return &APIError{
		Kind:     KindMalformedResponse,
		Provider: provider,
		Message:  "Invalid response from " + provider,
		Detail:   causeText(cause),
		Cause:    cause,
	}
}

// transportText drops the request URL from *url.Error, since the URL may
// carry an API key.
func transportText(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return causeText(err)
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ClassifyStatus maps a non-2xx response to a classified error, attaching
// any error detail found in the body.
func ClassifyStatus(provider string, statusCode int, body []byte) *APIError {
	e := &APIError{
		Provider:   provider,
		StatusCode: statusCode,
		Detail:     ExtractErrorDetail(body),
	}

	switch {
	case statusCode == http.StatusBadRequest:
		e.Kind, e.Message = KindBadRequest, MsgBadRequest
	case statusCode == http.StatusUnauthorized:
		e.Kind, e.Message = KindInvalidKey, MsgInvalidKey
	case statusCode == http.StatusForbidden:
		e.Kind, e.Message = KindQuotaExceeded, MsgQuotaExceeded
	case statusCode == http.StatusNotFound:
		e.Kind, e.Message = KindNotFound, MsgNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Kind, e.Message = KindRateLimited, MsgRateLimit
	case statusCode >= 500:
		e.Kind, e.Message = KindServer, MsgServerError
	default:
		e.Kind = KindHTTP
		e.Message = fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode))
	}
	return e
}

// ExtractErrorDetail pulls an error description out of a JSON or text body
func ExtractErrorDetail(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}

	for _, key := range []string{"error", "message", "Error Message", "error-type", "detail"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	if status, ok := payload["status"].(map[string]any); ok {
		if s, ok := status["error_message"].(string); ok {
			return s
		}
	}
	return ""
}

// IsKind reports whether err is a classified error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// retryableHints are matched against untyped errors
var retryableHints = []string{"network", "timeout", "connection", "server error", "5xx", "eof"}

// ShouldRetry decides whether the pipeline backs off and tries again
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range retryableHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
