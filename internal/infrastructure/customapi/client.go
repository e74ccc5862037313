// Package customapi calls arbitrary JSON endpoints configured by users
package customapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finboard-service/internal/domain/interfaces"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"

	"resty.dev/v3"
)

const (
	ProviderName      = "custom"
	DefaultTimeout    = 10 * time.Second
	DefaultRetryCount = 1
	retryWait         = 500 * time.Millisecond
	retryMaxWait      = 2 * time.Second
)

var (
	ErrURLRequired   = errors.New("API URL is required")
	ErrInvalidURL    = errors.New("API URL must be an absolute http or https URL")
	ErrNotJSON       = errors.New("response is not valid JSON")
	ErrUnsupportedOp = errors.New("unsupported HTTP method")
)

// Config tunes the custom endpoint client. Private and local destinations
// are refused unless AllowPrivateNetworks is set.
type Config struct {
	Timeout              time.Duration
	RetryCount           int
	AllowPrivateNetworks bool
}

// Client implements interfaces.CustomAPIClient on top of resty
type Client struct {
	http *resty.Client
}

var _ interfaces.CustomAPIClient = (*Client)(nil)

// NewClient creates a client that retries once on transport and 5xx failures
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}

	var client *resty.Client
	if cfg.AllowPrivateNetworks {
		client = resty.New()
	} else {
		// dial the resolved destination directly so the guard sees it
		client = resty.NewWithDialer(&net.Dialer{Control: guardDial}).RemoveProxy()
	}

	client = client.
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryConditions(retryCondition)

	return &Client{http: client}
}

func retryCondition(r *resty.Response, err error) bool {
	if errors.Is(err, ErrBlockedDestination) {
		return false
	}
	if err != nil {
		return true
	}
	return r.StatusCode() >= http.StatusInternalServerError
}

// Close releases idle connections
func (c *Client) Close() error {
	return c.http.Close()
}

// Fetch executes req and returns the decoded JSON body
func (c *Client) Fetch(ctx context.Context, req interfaces.CustomRequest) (any, error) {
	target, err := validateURL(req.URL)
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOp, method)
	}

	r := c.http.R().SetContext(ctx).SetHeaders(req.Headers)
	if len(req.Body) > 0 {
		r = r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(method, target.String())
	duration := time.Since(start)
	endpoint := target.Host + target.Path

	if err != nil {
		metrics.RecordExternalAPICall(ProviderName, target.Host, 0, duration.Seconds())
		logging.ExternalAPI().RequestFailed(ctx, ProviderName, endpoint, 0, err, duration)
		return nil, fmt.Errorf("request to %s failed: %w", target.Host, err)
	}
	metrics.RecordExternalAPICall(ProviderName, target.Host, resp.StatusCode(), duration.Seconds())

	if !resp.IsSuccess() {
		httpErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode(), statusText(resp))
		logging.ExternalAPI().RequestFailed(ctx, ProviderName, endpoint, resp.StatusCode(), httpErr, duration)
		return nil, httpErr
	}

	var data any
	if err := json.Unmarshal([]byte(resp.String()), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	logging.ExternalAPI().RequestCompleted(ctx, ProviderName, endpoint, resp.StatusCode(), duration)
	return data, nil
}

// Check issues a GET against rawURL and reports what came back. A non-JSON
// body is returned as text.
func (c *Client) Check(ctx context.Context, rawURL string) (*interfaces.CheckResult, error) {
	target, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().SetContext(ctx).Get(target.String())
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", target.Host, err)
	}

	result := &interfaces.CheckResult{
		StatusCode: resp.StatusCode(),
		Status:     statusText(resp),
	}
	var data any
	if err := json.Unmarshal([]byte(resp.String()), &data); err == nil {
		result.Body = data
	} else {
		result.Body = resp.String()
	}
	return result, nil
}

func statusText(resp *resty.Response) string {
	if text := http.StatusText(resp.StatusCode()); text != "" {
		return text
	}
	return resp.Status()
}

func validateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}
