package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Loader handles configuration loading using Viper
type Loader struct {
	v        *viper.Viper
	envFiles []string
	paths    []string
}

// NewLoader creates a loader reading .env, configs/config.yaml and the environment
func NewLoader() *Loader {
	return &Loader{
		v:        viper.New(),
		envFiles: []string{".env"},
		paths:    []string{"./configs", "../configs", ".", "/etc/finboard"},
	}
}

// WithEnvFiles replaces the dotenv files loaded before reading the environment
func (l *Loader) WithEnvFiles(files ...string) *Loader {
	l.envFiles = files
	return l
}

// WithConfigPaths replaces the directories searched for config.yaml
func (l *Loader) WithConfigPaths(paths ...string) *Loader {
	l.paths = paths
	return l
}

// Load loads configuration from dotenv files, config files and environment variables
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	l.setupViper()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := GetDefaultConfig()
	if err := l.v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	l.overrideWithEnvVars(config)

	return config, nil
}

// loadDotEnv populates the process environment without overriding existing values
func (l *Loader) loadDotEnv() error {
	for _, file := range l.envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

func (l *Loader) setupViper() {
	l.v.SetConfigName("config")
	l.v.SetConfigType("yaml")
	for _, p := range l.paths {
		l.v.AddConfigPath(p)
	}

	l.v.AutomaticEnv()
	l.v.SetEnvPrefix("FINBOARD") // FINBOARD_SERVER_PORT
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.bindEnvVars()
}

// bindEnvVars maps the conventional provider variables onto config keys
func (l *Loader) bindEnvVars() {
	envMappings := map[string][]string{
		"server.port":                             {"PORT"},
		"logging.level":                           {"LOG_LEVEL"},
		"logging.format":                          {"LOG_FORMAT"},
		"logging.environment":                     {"ENVIRONMENT", "ENV"},
		"layout.backend":                          {"LAYOUT_BACKEND"},
		"layout.redis.addr":                       {"REDIS_ADDR"},
		"layout.redis.password":                   {"REDIS_PASSWORD"},
		"layout.redis.db":                         {"REDIS_DB"},
		"providers.finnhub.api_key":               {"FINNHUB_API_KEY", "NEXT_PUBLIC_FINNHUB_API_KEY"},
		"providers.finnhub.base_url":              {"FINNHUB_BASE_URL", "NEXT_PUBLIC_FINNHUB_BASE_URL"},
		"providers.alpha_vantage.api_key":         {"ALPHA_VANTAGE_API_KEY", "NEXT_PUBLIC_ALPHA_VANTAGE_API_KEY"},
		"providers.alpha_vantage.base_url":        {"ALPHA_VANTAGE_BASE_URL", "NEXT_PUBLIC_ALPHA_VANTAGE_BASE_URL"},
		"providers.coingecko.api_key":             {"COINGECKO_API_KEY", "NEXT_PUBLIC_COINGECKO_API_KEY"},
		"providers.coingecko.base_url":            {"COINGECKO_BASE_URL", "NEXT_PUBLIC_COINGECKO_BASE_URL"},
		"providers.exchange_rate.api_key":         {"EXCHANGE_RATE_API_KEY", "NEXT_PUBLIC_EXCHANGE_RATE_API_KEY"},
		"providers.exchange_rate.base_url":        {"EXCHANGE_RATE_BASE_URL", "NEXT_PUBLIC_EXCHANGE_RATE_BASE_URL"},
		"refresh.auto_refresh":                    {"AUTO_REFRESH"},
		"refresh.interval":                        {"REFRESH_INTERVAL"},
		"rate_limit.enabled":                      {"RATE_LIMIT_ENABLED"},
		"rate_limit.max_requests":                 {"RATE_LIMIT_MAX_REQUESTS"},
		"auth.enabled":                            {"AUTH_ENABLED"},
		"auth.api_key":                            {"API_KEY"},
		"providers.custom.allow_private_networks": {"CUSTOM_API_ALLOW_PRIVATE_NETWORKS"},
	}

	for configKey, envVars := range envMappings {
		input := append([]string{configKey}, envVars...)
		_ = l.v.BindEnv(input...)
	}
}

// overrideWithEnvVars handles list valued variables
func (l *Loader) overrideWithEnvVars(config *Config) {
	if symbols := os.Getenv("POPULAR_SYMBOLS"); symbols != "" {
		if parsed := splitList(symbols, strings.ToUpper); len(parsed) > 0 {
			config.DataService.PopularSymbols = parsed
		}
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		if parsed := splitList(origins, strings.TrimSpace); len(parsed) > 0 {
			config.Server.CORSOrigins = parsed
		}
	}
}

func splitList(raw string, normalize func(string) string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = normalize(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// GetEnvironment determines the current environment from ENV vars
func GetEnvironment() string {
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" {
		env = strings.ToLower(os.Getenv("ENVIRONMENT"))
	}
	if env == "" {
		env = "development"
	}
	return env
}
