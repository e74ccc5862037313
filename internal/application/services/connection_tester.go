package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard-service/internal/domain/entities"
	"finboard-service/internal/domain/interfaces"
	"finboard-service/internal/infrastructure/logging"
)

const DefaultHealthTimeout = 20 * time.Second

// Health status keys
const (
	HealthAlphaVantage = "alpha_vantage"
	HealthCoinGecko    = "coingecko"
	HealthExchangeRate = "exchange_rate"
	HealthFinnhub      = "finnhub"
)

// Pingers are the provider clients used to check connectivity
type Pingers struct {
	AlphaVantage interfaces.ProviderPinger
	CoinGecko    interfaces.ProviderPinger
	ExchangeRate interfaces.ProviderPinger
	Finnhub      interfaces.ProviderPinger
}

type providerRoute struct {
	patterns []string
	label    string
	pinger   interfaces.ProviderPinger
}

// ConnectionTester checks endpoints before they are bound to widgets
type ConnectionTester struct {
	pingers       Pingers
	custom        interfaces.CustomAPIClient
	healthTimeout time.Duration
	now           func() time.Time
}

var _ interfaces.ConnectionTester = (*ConnectionTester)(nil)

// NewConnectionTester creates a tester over the provider pingers and the
// custom endpoint client
func NewConnectionTester(pingers Pingers, custom interfaces.CustomAPIClient, healthTimeout time.Duration) *ConnectionTester {
	if healthTimeout <= 0 {
		healthTimeout = DefaultHealthTimeout
	}
	return &ConnectionTester{
		pingers:       pingers,
		custom:        custom,
		healthTimeout: healthTimeout,
		now:           time.Now,
	}
}

// routes are matched in order against the lower cased URL
func (t *ConnectionTester) routes() []providerRoute {
	return []providerRoute{
		{patterns: []string{"alphavantage"}, label: "Alpha Vantage", pinger: t.pingers.AlphaVantage},
		{patterns: []string{"coingecko"}, label: "CoinGecko", pinger: t.pingers.CoinGecko},
		{patterns: []string{"exchangerate-api", "exchange"}, label: "Exchange Rate", pinger: t.pingers.ExchangeRate},
		{patterns: []string{"finnhub"}, label: "Finnhub", pinger: t.pingers.Finnhub},
	}
}

// TestAPIConnection reaches url through the matching provider client, or
// directly when no provider matches
func (t *ConnectionTester) TestAPIConnection(ctx context.Context, url string) (*entities.APITestResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrCustomURLRequired
	}

	lower := strings.ToLower(url)
	for _, route := range t.routes() {
		if !matchesAny(lower, route.patterns) || route.pinger == nil {
			continue
		}
		return t.testProvider(ctx, route)
	}
	return t.testCustom(ctx, url)
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func (t *ConnectionTester) testProvider(ctx context.Context, route providerRoute) (*entities.APITestResult, error) {
	start := t.now()
	raw, err := route.pinger.Ping(ctx)
	elapsed := t.now().Sub(start)
	if err != nil {
		logging.WarnWithError(ctx, "API connection test failed", err, logging.Fields{
			logging.FieldProvider: route.pinger.Name(),
		})
		return nil, err
	}

	var decoded any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}

	return &entities.APITestResult{
		Success:      true,
		Message:      route.label + " API connection successful!",
		ResponseTime: elapsed.Milliseconds(),
		Status:       http.StatusOK,
		Provider:     route.pinger.Name(),
		Fields:       ExtractFields(decoded),
	}, nil
}

func (t *ConnectionTester) testCustom(ctx context.Context, url string) (*entities.APITestResult, error) {
	if t.custom == nil {
		return nil, fmt.Errorf("custom API call failed: %w", ErrProviderUnavailable)
	}

	start := t.now()
	res, err := t.custom.Check(ctx, url)
	elapsed := t.now().Sub(start)
	if err != nil {
		logging.WarnWithError(ctx, "API connection test failed", err, nil)
		return nil, err
	}

	result := &entities.APITestResult{
		Success:      res.StatusCode < http.StatusBadRequest,
		Message:      "API connection test completed!",
		ResponseTime: elapsed.Milliseconds(),
		Status:       res.StatusCode,
		Provider:     "custom",
		Fields:       ExtractFields(res.Body),
	}
	if !result.Success {
		result.Message = ""
		result.Error = fmt.Sprintf("HTTP %d: %s", res.StatusCode, res.Status)
	}
	return result, nil
}

// ValidateAPIResponse checks that every expected field is present in the
// response of url. A field counts as present when an available path
// contains it.
func (t *ConnectionTester) ValidateAPIResponse(ctx context.Context, url string, expected []string) (*entities.ValidationResult, error) {
	result, err := t.TestAPIConnection(ctx, url)
	if err != nil {
		return &entities.ValidationResult{
			IsValid:         false,
			Error:           err.Error(),
			AvailableFields: []string{},
			MissingFields:   append([]string{}, expected...),
			Suggestions:     []entities.FieldSuggestion{},
		}, nil
	}

	available := make([]string, 0, len(result.Fields))
	for _, f := range result.Fields {
		available = append(available, f.Name)
	}

	missing := []string{}
	for _, field := range expected {
		if !containsSubstring(available, field) {
			missing = append(missing, field)
		}
	}

	return &entities.ValidationResult{
		IsValid:         len(missing) == 0,
		AvailableFields: available,
		MissingFields:   missing,
		Suggestions:     SuggestAlternativeFields(missing, available),
	}, nil
}

func containsSubstring(available []string, field string) bool {
	for _, a := range available {
		if strings.Contains(a, field) {
			return true
		}
	}
	return false
}

// SuggestAlternativeFields pairs each missing field with the available fields
// that contain it or are contained in it, ignoring case
func SuggestAlternativeFields(missing, available []string) []entities.FieldSuggestion {
	suggestions := []entities.FieldSuggestion{}
	for _, m := range missing {
		lm := strings.ToLower(m)
		var similar []string
		for _, a := range available {
			la := strings.ToLower(a)
			if strings.Contains(la, lm) || strings.Contains(lm, la) {
				similar = append(similar, a)
			}
		}
		if len(similar) > 0 {
			suggestions = append(suggestions, entities.FieldSuggestion{Missing: m, Alternatives: similar})
		}
	}
	return suggestions
}

// GetAPIHealthStatus pings every provider concurrently. A provider that is
// not configured reports "unknown".
func (t *ConnectionTester) GetAPIHealthStatus(ctx context.Context) map[string]entities.ProviderHealth {
	ctx, cancel := context.WithTimeout(ctx, t.healthTimeout)
	defer cancel()

	pingers := map[string]interfaces.ProviderPinger{
		HealthAlphaVantage: t.pingers.AlphaVantage,
		HealthCoinGecko:    t.pingers.CoinGecko,
		HealthExchangeRate: t.pingers.ExchangeRate,
		HealthFinnhub:      t.pingers.Finnhub,
	}

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]entities.ProviderHealth, len(pingers))
	)
	for key, pinger := range pingers {
		if pinger == nil {
			mu.Lock()
			results[key] = entities.ProviderHealth{Status: entities.HealthUnknown}
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			health := t.check(ctx, pinger)
			mu.Lock()
			results[key] = health
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (t *ConnectionTester) check(ctx context.Context, pinger interfaces.ProviderPinger) entities.ProviderHealth {
	start := t.now()
	if _, err := pinger.Ping(ctx); err != nil {
		logging.WarnWithError(ctx, "Provider health check failed", err, logging.Fields{
			logging.FieldProvider: pinger.Name(),
		})
		return entities.ProviderHealth{Status: entities.HealthError, Error: err.Error()}
	}
	return entities.ProviderHealth{
		Status:       entities.HealthHealthy,
		ResponseTime: t.now().Sub(start).Milliseconds(),
	}
}
