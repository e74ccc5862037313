package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"

	"github.com/avast/retry-go/v4"
)

const maxBodyBytes = 10 << 20

// AuthMode is where a provider expects its API key
type AuthMode int

const (
	AuthNone AuthMode = iota
	AuthQuery
	AuthHeader
	AuthPath
)

// AuthPlacement describes how the pipeline attaches credentials
type AuthPlacement struct {
	Mode     AuthMode
	Name     string
	Key      string
	Optional bool
}

// Verdict is the parse result of a 2xx payload. The zero value means OK.
type Verdict struct {
	Kind    ErrorKind
	Message string
	Detail  string // provider text kept for logs
}

func (v Verdict) OK() bool {
	return v.Kind == ""
}

// Ok is the accepting verdict
func Ok() Verdict {
	return Verdict{}
}

// PayloadInspector classifies a decoded-able body right after it arrives
type PayloadInspector func(body []byte) Verdict

// Capabilities are the per provider hooks plugged into the generic pipeline
type Capabilities struct {
	Provider string
	Auth     AuthPlacement
	Inspect  PayloadInspector
}

// IsErrorResponse reports whether a 2xx body encodes a provider failure
func (c Capabilities) IsErrorResponse(body []byte) bool {
	return c.Inspect != nil && !c.Inspect(body).OK()
}

// ExtractErrorMessage returns the failure text of an error payload
func (c Capabilities) ExtractErrorMessage(body []byte) string {
	if c.Inspect == nil {
		return ""
	}
	return c.Inspect(body).Message
}

// PipelineConfig tunes limits, caching and retries of a pipeline
type PipelineConfig struct {
	MaxRequests       int
	Window            time.Duration
	DefaultTTL        time.Duration
	MaxRetries        int
	BaseBackoff       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
	Timeout           time.Duration
}

// DefaultPipelineConfig returns the shared defaults: 50 requests per minute,
// 5 minute TTL, 3 retries with 1s doubling backoff capped at 30s.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxRequests:       50,
		Window:            time.Minute,
		DefaultTTL:        5 * time.Minute,
		MaxRetries:        3,
		BaseBackoff:       time.Second,
		BackoffMultiplier: 2,
		MaxBackoff:        30 * time.Second,
		Timeout:           15 * time.Second,
	}
}

// Request describes one provider call
type Request struct {
	Endpoint  string
	URL       string
	Method    string
	Params    map[string]string
	Headers   map[string]string
	Body      []byte
	SkipCache bool
	TTL       time.Duration
}

// HTTPDoer is the transport used by the pipeline
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Pipeline runs cache lookup, rate limiting, the HTTP call, classification
// and retries for one provider.
type Pipeline struct {
	caps       Capabilities
	cfg        PipelineConfig
	cache      *APICache
	limiter    *RateLimiter
	httpClient HTTPDoer
	timer      retry.Timer
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

func WithHTTPClient(c HTTPDoer) PipelineOption {
	return func(p *Pipeline) {
		p.httpClient = c
	}
}

func WithCache(c *APICache) PipelineOption {
	return func(p *Pipeline) {
		p.cache = c
	}
}

func WithRateLimiter(rl *RateLimiter) PipelineOption {
	return func(p *Pipeline) {
		p.limiter = rl
	}
}

// WithRetryTimer replaces the timer used to wait between attempts
func WithRetryTimer(t retry.Timer) PipelineOption {
	return func(p *Pipeline) {
		p.timer = t
	}
}

// NewPipeline creates a pipeline with its own cache and rate limiter
func NewPipeline(caps Capabilities, cfg PipelineConfig, opts ...PipelineOption) *Pipeline {
	defaults := DefaultPipelineConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaults.DefaultTTL
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaults.BaseBackoff
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = defaults.BackoffMultiplier
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.MaxBackoff
	}

	p := &Pipeline{
		caps: caps,
		cfg:  cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = NewAPICache()
	}
	if p.limiter == nil {
		p.limiter = NewRateLimiter(cfg.MaxRequests, cfg.Window)
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return p
}

// Provider returns the provider name
func (p *Pipeline) Provider() string {
	return p.caps.Provider
}

// Capabilities returns the provider hooks
func (p *Pipeline) Capabilities() Capabilities {
	return p.caps
}

// Cache exposes the response cache
func (p *Pipeline) Cache() *APICache {
	return p.cache
}

// Limiter exposes the provider rate limiter
func (p *Pipeline) Limiter() *RateLimiter {
	return p.limiter
}

// BackoffDelay returns min(multiplier^n * base, maxBackoff) for the n-th retry
func (p *Pipeline) BackoffDelay(n uint) time.Duration {
	d := float64(p.cfg.BaseBackoff) * math.Pow(p.cfg.BackoffMultiplier, float64(n))
	if d > float64(p.cfg.MaxBackoff) {
		return p.cfg.MaxBackoff
	}
	return time.Duration(d)
}

// MakeRequest executes req and returns the raw JSON body
func (p *Pipeline) MakeRequest(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := p.checkCredentials(); err != nil {
		return nil, err
	}

	key := CacheKey(req.URL, req.Params)
	ttl := req.TTL
	if ttl <= 0 {
		ttl = p.cfg.DefaultTTL
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = endpointOf(req.URL)
	}
	attempts := uint(p.cfg.MaxRetries + 1)

	var body json.RawMessage
	opts := []retry.Option{
		retry.Attempts(attempts),
		// retry-go passes the number of attempts made so far, so the first
		// wait arrives with n == 1
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			if n == 0 {
				return p.BackoffDelay(0)
			}
			return p.BackoffDelay(n - 1)
		}),
		retry.RetryIf(ShouldRetry),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		// OnRetry also runs after the final failed attempt
		retry.OnRetry(func(n uint, err error) {
			if n+1 >= attempts {
				return
			}
			metrics.RecordExternalAPIRetry(p.caps.Provider, endpoint, int(n+1))
			logging.ExternalAPI().RetryScheduled(ctx, p.caps.Provider, endpoint, n+1, attempts, err)
		}),
	}
	if p.timer != nil {
		opts = append(opts, retry.WithTimer(p.timer))
	}

	err := retry.Do(func() error {
		if !req.SkipCache {
			if cached, ok := p.cache.Get(key); ok {
				if raw, ok := cached.(json.RawMessage); ok {
					metrics.RecordProviderCache(p.caps.Provider, true)
					body = raw
					return nil
				}
			}
			metrics.RecordProviderCache(p.caps.Provider, false)
		}

		if ok, wait := p.limiter.TryAcquire(); !ok {
			metrics.RecordProviderRateLimitRejection(p.caps.Provider)
			return NewRateLimitError(p.caps.Provider, wait)
		}

		raw, err := p.execute(ctx, endpoint, req)
		if err != nil {
			return err
		}

		if !req.SkipCache {
			p.cache.Set(key, raw, ttl)
		}
		body = raw
		return nil
	}, opts...)

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			metrics.RecordExternalAPIError(p.caps.Provider, string(apiErr.Kind))
		}
		return nil, err
	}
	return body, nil
}

// Decode runs MakeRequest and unmarshals the body into out
func (p *Pipeline) Decode(ctx context.Context, req Request, out any) error {
	raw, err := p.MakeRequest(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewMalformedError(p.caps.Provider, err)
	}
	return nil
}

func (p *Pipeline) checkCredentials() error {
	auth := p.caps.Auth
	if auth.Mode == AuthNone || auth.Optional || auth.Key != "" {
		return nil
	}
	return &APIError{
		Kind:     KindInvalidKey,
		Provider: p.caps.Provider,
		Message:  MsgInvalidKey,
		Detail:   MsgMissingKey,
	}
}

// execute performs a single HTTP round trip
func (p *Pipeline) execute(ctx context.Context, endpoint string, req Request) (json.RawMessage, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("invalid url for %s: %s", p.caps.Provider, transportText(err)))
	}
	q := u.Query()
	for k, v := range req.Params {
		q.Set(k, v)
	}
	if p.caps.Auth.Mode == AuthQuery && p.caps.Auth.Key != "" {
		q.Set(p.caps.Auth.Name, p.caps.Auth.Key)
	}
	u.RawQuery = q.Encode()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var reader io.Reader
	if len(req.Body) > 0 {
		reader = bytes.NewReader(req.Body)
	}

	reqCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, method, u.String(), reader)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if p.caps.Auth.Mode == AuthHeader && p.caps.Auth.Key != "" {
		httpReq.Header.Set(p.caps.Auth.Name, p.caps.Auth.Key)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Unrecoverable(ctx.Err())
		}
		metrics.RecordExternalAPICall(p.caps.Provider, endpoint, 0, duration.Seconds())
		netErr := NewNetworkError(p.caps.Provider, err)
		logging.ExternalAPI().RequestFailed(ctx, p.caps.Provider, endpoint, 0, netErr, duration)
		return nil, netErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, NewNetworkError(p.caps.Provider, err)
	}
	metrics.RecordExternalAPICall(p.caps.Provider, endpoint, resp.StatusCode, duration.Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := ClassifyStatus(p.caps.Provider, resp.StatusCode, data)
		// a provider specific error code is more precise than the status
		if p.caps.Inspect != nil {
			if verdict := p.caps.Inspect(data); !verdict.OK() && verdict.Kind != KindProvider {
				apiErr.Kind, apiErr.Message, apiErr.Detail = verdict.Kind, verdict.Message, verdict.Detail
			}
		}
		logging.ExternalAPI().RequestFailed(ctx, p.caps.Provider, endpoint, resp.StatusCode, apiErr, duration)
		return nil, apiErr
	}

	if !json.Valid(data) {
		return nil, NewMalformedError(p.caps.Provider, errors.New("response is not valid JSON"))
	}

	if p.caps.Inspect != nil {
		if verdict := p.caps.Inspect(data); !verdict.OK() {
			apiErr := &APIError{
				Kind:       verdict.Kind,
				Provider:   p.caps.Provider,
				StatusCode: resp.StatusCode,
				Message:    verdict.Message,
				Detail:     verdict.Detail,
			}
			logging.ExternalAPI().RequestFailed(ctx, p.caps.Provider, endpoint, resp.StatusCode, apiErr, duration)
			return nil, apiErr
		}
	}

	logging.ExternalAPI().RequestCompleted(ctx, p.caps.Provider, endpoint, resp.StatusCode, duration)
	return json.RawMessage(data), nil
}

// endpointOf returns the URL path, which never contains credentials placed in the query
func endpointOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
