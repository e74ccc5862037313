package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validator checks a loaded configuration before the service starts
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the whole configuration
func (v *Validator) Validate(config *Config) error {
	if err := v.validateServer(config.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}

	if err := v.validateProviders(config.Providers); err != nil {
		return fmt.Errorf("providers config validation failed: %w", err)
	}

	if err := v.validatePipeline(config.Pipeline); err != nil {
		return fmt.Errorf("pipeline config validation failed: %w", err)
	}

	if err := v.validateDataService(config.DataService); err != nil {
		return fmt.Errorf("data service config validation failed: %w", err)
	}

	if err := v.validateRefresh(config.Refresh); err != nil {
		return fmt.Errorf("refresh config validation failed: %w", err)
	}

	if err := v.validateLayout(config.Layout); err != nil {
		return fmt.Errorf("layout config validation failed: %w", err)
	}

	if err := v.validateRateLimit(config.RateLimit); err != nil {
		return fmt.Errorf("rate limit config validation failed: %w", err)
	}

	if err := v.validateLogging(config.Logging); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateServer(config ServerConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("invalid port: %d, must be between 1-65535", config.Port)
	}

	if config.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got: %v", config.ShutdownTimeout)
	}

	if config.ShutdownTimeout > 5*time.Minute {
		return fmt.Errorf("shutdown_timeout too long: %v, max 5 minutes", config.ShutdownTimeout)
	}

	return nil
}

// validateProviders checks URLs and quotas. Empty API keys are allowed, the
// affected provider then reports an invalid key error per request.
func (v *Validator) validateProviders(config ProvidersConfig) error {
	providers := map[string]ProviderConfig{
		"finnhub":       config.Finnhub,
		"alpha_vantage": config.AlphaVantage,
		"coingecko":     config.CoinGecko.ProviderConfig,
		"exchange_rate": config.ExchangeRate,
	}

	for name, p := range providers {
		if err := v.validateProvider(name, p); err != nil {
			return err
		}
	}

	if err := v.validateURL(config.CoinGecko.ProBaseURL, "coingecko pro_base_url"); err != nil {
		return err
	}

	if config.Custom.Timeout <= 0 {
		return fmt.Errorf("custom timeout must be positive, got: %v", config.Custom.Timeout)
	}

	if config.Custom.RetryCount < 0 {
		return fmt.Errorf("custom retry_count cannot be negative, got: %d", config.Custom.RetryCount)
	}

	return nil
}

func (v *Validator) validateProvider(name string, config ProviderConfig) error {
	if err := v.validateURL(config.BaseURL, name+" base_url"); err != nil {
		return err
	}

	if config.RequestsPerMinute <= 0 {
		return fmt.Errorf("%s requests_per_minute must be positive, got: %d", name, config.RequestsPerMinute)
	}

	if config.Pacing < 0 {
		return fmt.Errorf("%s pacing cannot be negative, got: %v", name, config.Pacing)
	}

	if err := v.validateTTL(config.CacheTTL); err != nil {
		return fmt.Errorf("%s cache_ttl: %w", name, err)
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("%s timeout must be positive, got: %v", name, config.Timeout)
	}

	return nil
}

func (v *Validator) validatePipeline(config PipelineConfig) error {
	if config.MaxRetries < 0 || config.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 0-10, got: %d", config.MaxRetries)
	}

	if config.BaseBackoff <= 0 {
		return fmt.Errorf("base_backoff must be positive, got: %v", config.BaseBackoff)
	}

	if config.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be at least 1, got: %v", config.BackoffMultiplier)
	}

	if config.MaxBackoff < config.BaseBackoff {
		return fmt.Errorf("max_backoff (%v) should not be less than base_backoff (%v)", config.MaxBackoff, config.BaseBackoff)
	}

	return nil
}

func (v *Validator) validateDataService(config DataServiceConfig) error {
	if err := v.validateTTL(config.DedupTTL); err != nil {
		return fmt.Errorf("dedup_ttl: %w", err)
	}

	if len(config.PopularSymbols) == 0 {
		return fmt.Errorf("popular_symbols cannot be empty")
	}

	if config.DefaultCryptoLimit <= 0 || config.DefaultCryptoLimit > 250 {
		return fmt.Errorf("default_crypto_limit must be between 1-250, got: %d", config.DefaultCryptoLimit)
	}

	return nil
}

func (v *Validator) validateRefresh(config RefreshConfig) error {
	if config.Interval < time.Second {
		return fmt.Errorf("refresh interval too short: %v, min 1s", config.Interval)
	}

	if config.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got: %d", config.MaxConcurrent)
	}

	if config.StaggerDelay < 0 || config.BatchPause < 0 || config.AutoRefreshStagger < 0 {
		return fmt.Errorf("stagger delays cannot be negative")
	}

	if config.MaxManualRetries < 0 {
		return fmt.Errorf("max_manual_retries cannot be negative, got: %d", config.MaxManualRetries)
	}

	return nil
}

func (v *Validator) validateLayout(config LayoutConfig) error {
	validBackends := []string{"memory", "redis"}
	if !contains(validBackends, config.Backend) {
		return fmt.Errorf("invalid layout backend: %s, must be one of: %v", config.Backend, validBackends)
	}

	if config.KeyPrefix == "" {
		return fmt.Errorf("key_prefix cannot be empty")
	}

	if config.MaxAge <= 0 {
		return fmt.Errorf("max_age must be positive, got: %v", config.MaxAge)
	}

	if strings.EqualFold(config.Backend, "redis") {
		return v.validateRedis(config.Redis)
	}

	return nil
}

func (v *Validator) validateRedis(config RedisConfig) error {
	if config.Addr == "" {
		return fmt.Errorf("redis addr cannot be empty")
	}

	if !strings.Contains(config.Addr, ":") {
		return fmt.Errorf("invalid redis addr format: %s, expected host:port", config.Addr)
	}

	if config.DB < 0 || config.DB > 15 {
		return fmt.Errorf("invalid redis DB: %d, must be between 0-15", config.DB)
	}

	return nil
}

func (v *Validator) validateRateLimit(config RateLimitConfig) error {
	if !config.Enabled {
		return nil
	}

	if config.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit max_requests must be positive when enabled, got: %d", config.MaxRequests)
	}

	if config.MaxRequests > 10000 {
		return fmt.Errorf("rate_limit max_requests too high: %d, max 10000", config.MaxRequests)
	}

	if config.Window <= 0 {
		return fmt.Errorf("rate_limit window must be positive when enabled, got: %v", config.Window)
	}

	return nil
}

func (v *Validator) validateLogging(config LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, strings.ToLower(config.Level)) {
		return fmt.Errorf("invalid log level: %s, must be one of: %v", config.Level, validLevels)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, strings.ToLower(config.Format)) {
		return fmt.Errorf("invalid log format: %s, must be one of: %v", config.Format, validFormats)
	}

	return nil
}

// validateTTL keeps cache lifetimes inside a sane range
func (v *Validator) validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("TTL must be positive, got: %v", ttl)
	}

	if ttl < time.Second {
		return fmt.Errorf("TTL too short: %v, min 1s", ttl)
	}

	if ttl > 24*time.Hour {
		return fmt.Errorf("TTL too long: %v, max 24 hours", ttl)
	}

	return nil
}

// validateURL checks that a URL is a valid HTTP or HTTPS address
func (v *Validator) validateURL(rawURL, fieldName string) error {
	if rawURL == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %s, error: %v", fieldName, rawURL, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("invalid %s scheme: %s, must be http or https", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s must have a host", fieldName)
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
