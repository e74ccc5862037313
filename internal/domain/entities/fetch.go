package entities

import "encoding/json"

// DataSource is the logical name a widget binds to
type DataSource string

const (
	SourceStocks          DataSource = "stocks"
	SourceMarketGainers   DataSource = "market_gainers"
	SourceMarketLosers    DataSource = "market_losers"
	SourceCrypto          DataSource = "crypto"
	SourceCryptoChart     DataSource = "crypto_chart"
	SourceForex           DataSource = "forex"
	SourceMarketSummary   DataSource = "market_summary"
	SourceWatchlist       DataSource = "watchlist"
	SourcePerformanceData DataSource = "performance_data"
	SourceFinancialData   DataSource = "financial_data"
	SourceChartData       DataSource = "chart_data"
	SourceMarketTrends    DataSource = "market_trends"
	SourceCustom          DataSource = "custom"
)

// AllDataSources lists every routable source name
var AllDataSources = []DataSource{
	SourceStocks, SourceMarketGainers, SourceMarketLosers,
	SourceCrypto, SourceCryptoChart, SourceForex,
	SourceMarketSummary, SourceWatchlist, SourcePerformanceData, SourceFinancialData,
	SourceChartData, SourceMarketTrends, SourceCustom,
}

// Valid reports whether s is a routable source
func (s DataSource) Valid() bool {
	for _, known := range AllDataSources {
		if s == known {
			return true
		}
	}
	return false
}

// FetchOptions are the widget config values that influence a fetch
type FetchOptions struct {
	Symbols        []string          `json:"symbols,omitempty"`
	Symbol         string            `json:"symbol,omitempty"`
	Pair           string            `json:"pair,omitempty"`
	Limit          int               `json:"limit,omitempty"`
	Timeframe      string            `json:"timeframe,omitempty"`
	Interval       string            `json:"interval,omitempty"`
	Days           int               `json:"days,omitempty"`
	VsCurrency     string            `json:"vsCurrency,omitempty"`
	IncludeProfile bool              `json:"includeProfile,omitempty"`
	APIURL         string            `json:"apiUrl,omitempty"`
	Method         string            `json:"method,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           json.RawMessage   `json:"body,omitempty"`
	ForceRefresh   bool              `json:"forceRefresh,omitempty"`
}
