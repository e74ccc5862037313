package interfaces

import (
	"context"
	"encoding/json"

	"finboard-service/internal/domain/entities"
)

// StockProvider serves multi-symbol stock quotes
type StockProvider interface {
	Name() string
	GetStockQuotes(ctx context.Context, symbols []string, includeProfile bool) ([]entities.ProviderQuote, error)
}

// HistoricalProvider serves OHLCV series for a symbol
type HistoricalProvider interface {
	GetHistoricalData(ctx context.Context, symbol, timeframe, interval string) ([]entities.Candle, error)
}

// CryptoProvider serves crypto market data
type CryptoProvider interface {
	GetCryptoMarkets(ctx context.Context, vsCurrency string, limit int) ([]entities.CryptoAsset, error)
	GetMarketChart(ctx context.Context, coinID string, days int, vsCurrency string) ([]entities.Candle, error)
	GetGainersLosers(ctx context.Context, vsCurrency string) (gainers, losers []entities.CryptoAsset, err error)
}

// ForexProvider serves currency pair rates
type ForexProvider interface {
	GetPairRate(ctx context.Context, from, to string) (*entities.ForexPair, error)
	GetPopularForexPairs(ctx context.Context) ([]entities.ForexPair, error)
	GetLatestRates(ctx context.Context, base string) (*entities.CurrencyRates, error)
}

// CustomRequest is a user supplied endpoint call
type CustomRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
}

// CheckResult is the raw outcome of reaching an arbitrary endpoint
type CheckResult struct {
	StatusCode int
	Status     string
	Body       any
}

// CustomAPIClient calls arbitrary JSON endpoints
type CustomAPIClient interface {
	Fetch(ctx context.Context, req CustomRequest) (any, error)
	Check(ctx context.Context, url string) (*CheckResult, error)
}

// ProviderPinger makes a cheap authenticated call to check a provider
type ProviderPinger interface {
	Name() string
	Ping(ctx context.Context) (json.RawMessage, error)
}
