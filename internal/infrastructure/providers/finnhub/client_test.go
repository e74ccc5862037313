package finnhub

import (
	"context"
	"encoding/json"
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

func testConfig(baseURL string) providers.Config {
	return providers.Config{
		BaseURL:           baseURL,
		APIKey:            "test-token",
		RequestsPerMinute: 1000,
		Retry: providers.RetryPolicy{
			MaxRetries:        0,
			BaseBackoff:       time.Millisecond,
			BackoffMultiplier: 1,
			MaxBackoff:        time.Millisecond,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newFinnhubServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"c": 190.5, "d": 1.5, "dp": 0.79, "h": 191, "l": 188, "o": 189, "pc": 189, "t": 1700000000,
			})
		case "MSFT":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"c": 370.1, "d": -2.1, "dp": -0.56, "h": 372, "l": 369, "o": 371, "pc": 372.2, "t": 1700000000,
			})
		case "LIMIT":
			writeJSON(w, http.StatusOK, map[string]string{"error": "API limit reached. Please try again later."})
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{"c": 0, "d": nil, "dp": nil, "h": 0, "l": 0, "o": 0, "pc": 0, "t": 0})
		}
	})
	mux.HandleFunc("/stock/profile2", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("symbol") == "AAPL" {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"name": "Apple Inc", "ticker": "AAPL", "country": "US", "currency": "USD",
				"exchange": "NASDAQ", "finnhubIndustry": "Technology", "marketCapitalization": 2950000,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})
	mux.HandleFunc("/stock/candle", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("symbol") == "NONE" {
			writeJSON(w, http.StatusOK, map[string]string{"s": "no_data"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"s": "ok",
			"t": []int64{1699920000, 1700006400},
			"o": []float64{1, 2}, "h": []float64{3, 4}, "l": []float64{0.5, 1.5}, "c": []float64{2, 3},
			"v": []float64{100, 200},
		})
	})
	mux.HandleFunc("/stock/market-status", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"exchange": r.URL.Query().Get("exchange"), "isOpen": true, "session": "regular", "timezone": "America/New_York", "t": 1700000000,
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, calls
}

func TestGetStockQuote_Success(t *testing.T) {
	server, _ := newFinnhubServer(t)
	client := NewClient(testConfig(server.URL))

	quote, err := client.GetStockQuote(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, 190.5, quote.Price)
	assert.Equal(t, 0.79, quote.ChangePercent)
	assert.Equal(t, 189.0, quote.PreviousClose)
	assert.Equal(t, "2023-11-14", quote.LatestDay)
	assert.Equal(t, ProviderName, quote.Source)
}

func TestGetStockQuote_UnknownSymbolIsNotFound(t *testing.T) {
	server, _ := newFinnhubServer(t)
	client := NewClient(testConfig(server.URL))

	_, err := client.GetStockQuote(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.True(t, apiclient.IsKind(err, apiclient.KindNotFound))
}

func TestGetStockQuote_LimitPayloadIsRateLimited(t *testing.T) {
	server, _ := newFinnhubServer(t)
	client := NewClient(testConfig(server.URL))

	_, err := client.GetStockQuote(context.Background(), "LIMIT")
	require.Error(t, err)
	assert.ErrorIs(t, err, apiclient.ErrRateLimited)
}

func TestGetStockQuote_MissingKeySkipsNetwork(t *testing.T) {
	server, calls := newFinnhubServer(t)
	cfg := testConfig(server.URL)
	cfg.APIKey = ""
	client := NewClient(cfg)

	_, err := client.GetStockQuote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, apiclient.ErrInvalidKey)
	assert.Equal(t, int32(0), calls.Load())
}

func TestGetCompanyProfile(t *testing.T) {
	server, _ := newFinnhubServer(t)
	client := NewClient(testConfig(server.URL))

	profile, err := client.GetCompanyProfile(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Apple Inc", profile.Name)
	assert.Equal(t, "Technology", profile.Industry)

	empty, err := client.GetCompanyProfile(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestGetEnhancedStockQuotes_SkipsFailedSymbols(t *testing.T) {
	server, _ := newFinnhubServer(t)
	client := NewClient(testConfig(server.URL))

	quotes, err := client.GetEnhancedStockQuotes(context.Background(), []string{"AAPL", "ZZZZ", "MSFT"}, true)
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "AAPL", quotes[0].Symbol)
	require.NotNil(t, quotes[0].Profile)
	assert.Equal(t, "Apple Inc", quotes[0].Profile.Name)
	assert.Equal(t, "MSFT", quotes[1].Symbol)
	assert.Nil(t, quotes[1].Profile)
}

func TestGetEnhancedStockQuotes_AllFailed(t *testing.T) {
	server, _ := newFinnhubServer(t)
	client := NewClient(testConfig(server.URL))

	_, err := client.GetStockQuotes(context.Background(), []string{"ZZZZ", "YYYY"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrAllSymbolsFailed)
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}

func TestGetCandles(t *testing.T) {
	server, _ := newFinnhubServer(t)
	client := NewClient(testConfig(server.URL))
	to := time.Unix(1700006400, 0)

	candles, err := client.GetCandles(context.Background(), "AAPL", "D", to.Add(-48*time.Hour), to)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, "2023-11-14", candles[0].Date)
	assert.Equal(t, 3.0, candles[1].Close)
	assert.Equal(t, 200.0, candles[1].Volume)

	none, err := client.GetCandles(context.Background(), "NONE", "D", to.Add(-48*time.Hour), to)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetMarketStatus(t *testing.T) {
	server, _ := newFinnhubServer(t)
	client := NewClient(testConfig(server.URL))

	status, err := client.GetMarketStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "US", status.Exchange)
	assert.True(t, status.IsOpen)
}

func TestPing_BypassesCache(t *testing.T) {
	server, calls := newFinnhubServer(t)
	client := NewClient(testConfig(server.URL))

	_, err := client.Ping(context.Background())
	require.NoError(t, err)
	_, err = client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolution(t *testing.T) {
	tests := []struct {
		interval string
		want     string
	}{
		{"", "D"},
		{"daily", "D"},
		{"5min", "5"},
		{"60min", "60"},
		{"weekly", "W"},
		{"monthly", "M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolution(tt.interval), tt.interval)
	}
}
