// Package providers holds what the market data clients share: their
// configuration shape and the paced per-symbol fan out.
package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finboard-service/internal/infrastructure/apiclient"
	"finboard-service/internal/infrastructure/logging"
)

// ErrAllSymbolsFailed is returned when a multi-symbol call produced nothing
var ErrAllSymbolsFailed = errors.New("all symbols failed")

// RetryPolicy mirrors the pipeline backoff settings
type RetryPolicy struct {
	MaxRetries        int
	BaseBackoff       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// Config is the common configuration of a provider client
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerMinute int
	Pacing            time.Duration
	CacheTTL          time.Duration
	Timeout           time.Duration
	Retry             RetryPolicy
}

// PipelineConfig converts the provider settings for apiclient.NewPipeline.
// Zero values fall back to the pipeline defaults.
func (c Config) PipelineConfig() apiclient.PipelineConfig {
	cfg := apiclient.DefaultPipelineConfig()
	if c.RequestsPerMinute > 0 {
		cfg.MaxRequests = c.RequestsPerMinute
		cfg.Window = time.Minute
	}
	if c.CacheTTL > 0 {
		cfg.DefaultTTL = c.CacheTTL
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	if c.Retry != (RetryPolicy{}) {
		cfg.MaxRetries = c.Retry.MaxRetries
		cfg.BaseBackoff = c.Retry.BaseBackoff
		cfg.BackoffMultiplier = c.Retry.BackoffMultiplier
		cfg.MaxBackoff = c.Retry.MaxBackoff
	}
	return cfg
}

// BaseURLOr returns the configured base URL or fallback
func (c Config) BaseURLOr(fallback string) string {
	if c.BaseURL == "" {
		return fallback
	}
	return c.BaseURL
}

// FanOut calls fetch for each symbol in order, waiting on pacer before
// each call. Failing symbols are skipped and logged; an error is returned only
// when no symbol succeeded.
func FanOut[T any](ctx context.Context, provider string, pacer *apiclient.Pacer, symbols []string,
	fetch func(ctx context.Context, symbol string) (T, error)) ([]T, error) {
	results := make([]T, 0, len(symbols))
	var lastErr error

	for _, symbol := range symbols {
		if err := pacer.Wait(ctx); err != nil {
			return results, err
		}

		item, err := fetch(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			lastErr = err
			logging.WarnWithError(ctx, "Skipping symbol after provider failure", err, logging.Fields{
				logging.FieldProvider: provider,
				logging.FieldSymbols:  symbol,
			})
			continue
		}
		results = append(results, item)
	}

	if len(results) == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllSymbolsFailed, lastErr)
	}
	return results, nil
}
