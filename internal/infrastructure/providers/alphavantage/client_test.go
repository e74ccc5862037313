package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"finboard-service/internal/infrastructure/apiclient"
	"finboard-service/internal/infrastructure/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quoteBody = `{"Global Quote": {
	"01. symbol": "IBM", "02. open": "160.0000", "03. high": "162.5000", "04. low": "159.2500",
	"05. price": "161.1000", "06. volume": "3456789", "07. latest trading day": "2024-05-10",
	"08. previous close": "160.9300", "09. change": "0.1700", "10. change percent": "0.1100%"}}`

const dailyBody = `{"Meta Data": {"2. Symbol": "IBM"}, "Time Series (Daily)": {
	"2024-05-10": {"1. open": "3", "2. high": "4", "3. low": "2", "4. close": "3.5", "5. volume": "300"},
	"2024-05-08": {"1. open": "1", "2. high": "2", "3. low": "0.5", "4. close": "1.5", "5. volume": "100"},
	"2024-05-09": {"1. open": "2", "2. high": "3", "3. low": "1", "4. close": "2.5", "5. volume": "200"}}}`

func testConfig(baseURL string) providers.Config {
	return providers.Config{
		BaseURL:           baseURL,
		APIKey:            "demo",
		RequestsPerMinute: 1000,
		Retry: providers.RetryPolicy{
			BaseBackoff:       time.Millisecond,
			BackoffMultiplier: 1,
			MaxBackoff:        time.Millisecond,
		},
	}
}

// newServer answers by function and symbol with canned bodies
func newServer(t *testing.T, bodies map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "demo", q.Get("apikey"))
		body, ok := bodies[q.Get("function")+":"+q.Get("symbol")]
		if !ok {
			body, ok = bodies[q.Get("function")]
		}
		if !ok {
			body = `{"Global Quote": {}}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func TestGetStockQuote_ParsesStringNumbers(t *testing.T) {
	server, _ := newServer(t, map[string]string{"GLOBAL_QUOTE:IBM": quoteBody})
	client := NewClient(testConfig(server.URL))

	quote, err := client.GetStockQuote(context.Background(), "ibm")
	require.NoError(t, err)

	assert.Equal(t, "IBM", quote.Symbol)
	assert.Equal(t, 161.1, quote.Price)
	assert.Equal(t, 0.11, quote.ChangePercent)
	assert.Equal(t, 0.17, quote.Change)
	assert.Equal(t, int64(3456789), quote.Volume)
	assert.Equal(t, "2024-05-10", quote.LatestDay)
	assert.Equal(t, ProviderName, quote.Source)
}

func TestGetStockQuote_EmptyQuoteIsNotFound(t *testing.T) {
	server, _ := newServer(t, nil)
	client := NewClient(testConfig(server.URL))

	_, err := client.GetStockQuote(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, apiclient.IsKind(err, apiclient.KindNotFound))
	assert.Contains(t, err.Error(), "NOPE")
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		kind    apiclient.ErrorKind
		message string
		detail  string
	}{
		{
			name:    "error message",
			body:    `{"Error Message": "Invalid API call."}`,
			kind:    apiclient.KindProvider,
			message: "Invalid API call.",
		},
		{
			name:    "note alone",
			body:    `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
			kind:    apiclient.KindRateLimited,
			message: apiclient.MsgRateLimit,
			detail:  "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute.",
		},
		{
			name:    "information about call frequency",
			body:    `{"Information": "Please consider spreading out your free API requests more sparingly (1 request per second). call frequency"}`,
			kind:    apiclient.KindRateLimited,
			message: apiclient.MsgRateLimit,
			detail:  "Please consider spreading out your free API requests more sparingly (1 request per second). call frequency",
		},
		{
			name:    "premium information",
			body:    `{"Information": "This is a premium endpoint."}`,
			kind:    apiclient.KindProvider,
			message: "This is a premium endpoint.",
		},
		{
			name: "informational note next to data",
			body: `{"Note": "call frequency notice", "Global Quote": {"01. symbol": "IBM"}}`,
		},
		{
			name: "plain data",
			body: quoteBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := inspect([]byte(tt.body))
			assert.Equal(t, tt.kind, verdict.Kind)
			assert.Equal(t, tt.message, verdict.Message)
			assert.Equal(t, tt.detail, verdict.Detail)
		})
	}
}

func TestGetMultipleStockQuotes_SkipsFailures(t *testing.T) {
	server, calls := newServer(t, map[string]string{"GLOBAL_QUOTE:IBM": quoteBody})
	client := NewClient(testConfig(server.URL))

	quotes, err := client.GetMultipleStockQuotes(context.Background(), []string{"IBM", "NOPE"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "IBM", quotes[0].Symbol)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetMultipleStockQuotes_AllFailed(t *testing.T) {
	server, _ := newServer(t, map[string]string{"GLOBAL_QUOTE": `{"Note": "call frequency exceeded"}`})
	client := NewClient(testConfig(server.URL))

	_, err := client.GetStockQuotes(context.Background(), []string{"AAPL", "MSFT"}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrAllSymbolsFailed)
	assert.ErrorIs(t, err, apiclient.ErrRateLimited)
}

func TestGetTimeSeries_Chronological(t *testing.T) {
	server, _ := newServer(t, map[string]string{"TIME_SERIES_DAILY:IBM": dailyBody})
	client := NewClient(testConfig(server.URL))

	candles, err := client.GetTimeSeries(context.Background(), "IBM", "daily")
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, "2024-05-08", candles[0].Date)
	assert.Equal(t, "2024-05-09", candles[1].Date)
	assert.Equal(t, "2024-05-10", candles[2].Date)
	assert.Equal(t, 3.5, candles[2].Close)
	assert.Equal(t, 300.0, candles[2].Volume)
	assert.NotZero(t, candles[0].Timestamp)
}

func TestGetTimeSeries_UnknownTimeframe(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"))

	_, err := client.GetTimeSeries(context.Background(), "IBM", "hourly")
	assert.ErrorIs(t, err, ErrUnknownTimeframe)
}

func TestGetIntraday(t *testing.T) {
	body := `{"Time Series (5min)": {
		"2024-05-10 09:35:00": {"1. open": "2", "2. high": "2", "3. low": "2", "4. close": "2", "5. volume": "10"},
		"2024-05-10 09:30:00": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "1", "5. volume": "5"}}}`
	server, _ := newServer(t, map[string]string{"TIME_SERIES_INTRADAY:IBM": body})
	client := NewClient(testConfig(server.URL))

	candles, err := client.GetHistoricalData(context.Background(), "IBM", "intraday", "")
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, "2024-05-10 09:30:00", candles[0].Date)

	_, err = client.GetIntraday(context.Background(), "IBM", "2min")
	assert.ErrorIs(t, err, ErrUnknownInterval)
}

func TestSearchSymbols(t *testing.T) {
	body := `{"bestMatches": [{"1. symbol": "TSCO.LON", "2. name": "Tesco PLC", "3. type": "Equity",
		"4. region": "United Kingdom", "8. currency": "GBX", "9. matchScore": "0.7273"}]}`
	server, _ := newServer(t, map[string]string{"SYMBOL_SEARCH": body})
	client := NewClient(testConfig(server.URL))

	matches, err := client.SearchSymbols(context.Background(), "tesco")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "TSCO.LON", matches[0].Symbol)
	assert.Equal(t, 0.7273, matches[0].MatchScore)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 0.11, parseNumber("0.1100%"))
	assert.Equal(t, -1.25, parseNumber(" -1.2500 "))
	assert.Equal(t, 0.0, parseNumber(""))
	assert.Equal(t, 0.0, parseNumber("None"))
	assert.Equal(t, int64(42), parseInt("42"))
}
