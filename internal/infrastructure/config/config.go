package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Providers   ProvidersConfig   `yaml:"providers" mapstructure:"providers"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	DataService DataServiceConfig `yaml:"data_service" mapstructure:"data_service"`
	Refresh     RefreshConfig     `yaml:"refresh" mapstructure:"refresh"`
	Layout      LayoutConfig      `yaml:"layout" mapstructure:"layout"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Auth        AuthConfig        `yaml:"auth" mapstructure:"auth"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	StreamPing      time.Duration `yaml:"stream_ping" mapstructure:"stream_ping"`
}

// ProviderConfig is shared by every market data provider
type ProviderConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Pacing            time.Duration `yaml:"pacing" mapstructure:"pacing"`
	CacheTTL          time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CoinGeckoConfig adds the paid tier host
type CoinGeckoConfig struct {
	ProviderConfig `yaml:",inline" mapstructure:",squash"`
	ProBaseURL     string `yaml:"pro_base_url" mapstructure:"pro_base_url"`
}

// CustomAPIConfig tunes calls to user supplied endpoints
type CustomAPIConfig struct {
	Timeout              time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryCount           int           `yaml:"retry_count" mapstructure:"retry_count"`
	AllowPrivateNetworks bool          `yaml:"allow_private_networks" mapstructure:"allow_private_networks"`
}

// ProvidersConfig groups the external data providers
type ProvidersConfig struct {
	Finnhub      ProviderConfig  `yaml:"finnhub" mapstructure:"finnhub"`
	AlphaVantage ProviderConfig  `yaml:"alpha_vantage" mapstructure:"alpha_vantage"`
	CoinGecko    CoinGeckoConfig `yaml:"coingecko" mapstructure:"coingecko"`
	ExchangeRate ProviderConfig  `yaml:"exchange_rate" mapstructure:"exchange_rate"`
	Custom       CustomAPIConfig `yaml:"custom" mapstructure:"custom"`
}

// PipelineConfig holds the retry policy shared by provider clients
type PipelineConfig struct {
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	BaseBackoff       time.Duration `yaml:"base_backoff" mapstructure:"base_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	MaxBackoff        time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// DataServiceConfig configures the dispatch facade
type DataServiceConfig struct {
	DedupTTL           time.Duration `yaml:"dedup_ttl" mapstructure:"dedup_ttl"`
	PopularSymbols     []string      `yaml:"popular_symbols" mapstructure:"popular_symbols"`
	DefaultCryptoLimit int           `yaml:"default_crypto_limit" mapstructure:"default_crypto_limit"`
	HealthTimeout      time.Duration `yaml:"health_timeout" mapstructure:"health_timeout"`
}

// RefreshConfig configures widget scheduling
type RefreshConfig struct {
	AutoRefresh        bool          `yaml:"auto_refresh" mapstructure:"auto_refresh"`
	Interval           time.Duration `yaml:"interval" mapstructure:"interval"`
	MaxConcurrent      int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	StaggerDelay       time.Duration `yaml:"stagger_delay" mapstructure:"stagger_delay"`
	BatchPause         time.Duration `yaml:"batch_pause" mapstructure:"batch_pause"`
	AutoRefreshStagger time.Duration `yaml:"auto_refresh_stagger" mapstructure:"auto_refresh_stagger"`
	MaxManualRetries   int           `yaml:"max_manual_retries" mapstructure:"max_manual_retries"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
}

// LayoutConfig configures dashboard persistence
type LayoutConfig struct {
	Backend   string        `yaml:"backend" mapstructure:"backend"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	MaxAge    time.Duration `yaml:"max_age" mapstructure:"max_age"`
	Redis     RedisConfig   `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig contains Redis-specific configuration
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// RateLimitConfig limits inbound API traffic per client
type RateLimitConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxRequests int           `yaml:"max_requests" mapstructure:"max_requests"`
	Window      time.Duration `yaml:"window" mapstructure:"window"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	Enabled     bool     `yaml:"enabled" mapstructure:"enabled"`
	APIKey      string   `yaml:"api_key" mapstructure:"api_key"`
	HeaderName  string   `yaml:"header_name" mapstructure:"header_name"`
	UnauthPaths []string `yaml:"unauth_paths" mapstructure:"unauth_paths"`
}

// LoggingConfig contains logging system configuration
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// DefaultPopularSymbols are used when a stock widget names no symbols
var DefaultPopularSymbols = []string{"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN", "NVDA", "META", "NFLX"}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			CORSOrigins:     []string{"*"},
			StreamPing:      30 * time.Second,
		},
		Providers: ProvidersConfig{
			Finnhub: ProviderConfig{
				BaseURL:           "https://finnhub.io/api/v1",
				RequestsPerMinute: 60,
				Pacing:            time.Second,
				CacheTTL:          time.Minute,
				Timeout:           10 * time.Second,
			},
			AlphaVantage: ProviderConfig{
				BaseURL:           "https://www.alphavantage.co/query",
				RequestsPerMinute: 5,
				Pacing:            12 * time.Second,
				CacheTTL:          5 * time.Minute,
				Timeout:           15 * time.Second,
			},
			CoinGecko: CoinGeckoConfig{
				ProviderConfig: ProviderConfig{
					BaseURL:           "https://api.coingecko.com/api/v3",
					RequestsPerMinute: 30,
					CacheTTL:          time.Minute,
					Timeout:           10 * time.Second,
				},
				ProBaseURL: "https://pro-api.coingecko.com/api/v3",
			},
			ExchangeRate: ProviderConfig{
				BaseURL:           "https://v6.exchangerate-api.com/v6",
				RequestsPerMinute: 10,
				Pacing:            time.Second,
				CacheTTL:          10 * time.Minute,
				Timeout:           10 * time.Second,
			},
			Custom: CustomAPIConfig{
				Timeout:    10 * time.Second,
				RetryCount: 1,
			},
		},
		Pipeline: PipelineConfig{
			MaxRetries:        3,
			BaseBackoff:       time.Second,
			BackoffMultiplier: 2,
			MaxBackoff:        30 * time.Second,
		},
		DataService: DataServiceConfig{
			DedupTTL:           30 * time.Second,
			PopularSymbols:     append([]string(nil), DefaultPopularSymbols...),
			DefaultCryptoLimit: 20,
			HealthTimeout:      20 * time.Second,
		},
		Refresh: RefreshConfig{
			AutoRefresh:        true,
			Interval:           30 * time.Second,
			MaxConcurrent:      3,
			StaggerDelay:       time.Second,
			BatchPause:         2 * time.Second,
			AutoRefreshStagger: 200 * time.Millisecond,
			MaxManualRetries:   3,
			FetchTimeout:       2 * time.Minute,
		},
		Layout: LayoutConfig{
			Backend:   "memory",
			KeyPrefix: "finboard_",
			MaxAge:    30 * 24 * time.Hour,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxRequests: 120,
			Window:      time.Minute,
		},
		Auth: AuthConfig{
			Enabled:     false,
			HeaderName:  "X-API-Key",
			UnauthPaths: []string{"/health", "/ready", "/metrics", "/ws"},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Environment: "development",
		},
	}
}
