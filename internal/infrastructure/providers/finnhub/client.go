package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"finboard-service/internal/domain/entities"
	"finboard-service/internal/infrastructure/apiclient"
	"finboard-service/internal/infrastructure/providers"
)

const (
	ProviderName   = "finnhub"
	DefaultBaseURL = "https://finnhub.io/api/v1"
	DefaultPacing  = time.Second
	defaultPeriod  = 30 * 24 * time.Hour
	rateLimitText  = "api limit reached"
)

// Client talks to the Finnhub REST API through the shared request pipeline
type Client struct {
	baseURL  string
	pipeline *apiclient.Pipeline
	pacer    *apiclient.Pacer
	now      func() time.Time
}

// NewClient creates a Finnhub client. The API key travels as the token query parameter.
func NewClient(cfg providers.Config, opts ...apiclient.PipelineOption) *Client {
	caps := apiclient.Capabilities{
		Provider: ProviderName,
		Auth: apiclient.AuthPlacement{
			Mode: apiclient.AuthQuery,
			Name: "token",
			Key:  cfg.APIKey,
		},
		Inspect: inspect,
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURLOr(DefaultBaseURL), "/"),
		pipeline: apiclient.NewPipeline(caps, cfg.PipelineConfig(), opts...),
		pacer:    apiclient.NewPacer(cfg.Pacing),
		now:      time.Now,
	}
}

// inspect maps {"error": "..."} bodies onto the error taxonomy
func inspect(body []byte) apiclient.Verdict {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == "" {
		return apiclient.Ok()
	}
	if strings.Contains(strings.ToLower(resp.Error), rateLimitText) {
		return apiclient.Verdict{Kind: apiclient.KindRateLimited, Message: apiclient.MsgRateLimit}
	}
	return apiclient.Verdict{Kind: apiclient.KindProvider, Message: resp.Error}
}

// Name returns the provider name
func (c *Client) Name() string {
	return ProviderName
}

// Pipeline exposes the underlying request pipeline
func (c *Client) Pipeline() *apiclient.Pipeline {
	return c.pipeline
}

func (c *Client) get(path string, params map[string]string) apiclient.Request {
	return apiclient.Request{
		Endpoint: path,
		URL:      c.baseURL + path,
		Params:   params,
	}
}

// GetStockQuote returns the live quote of symbol
func (c *Client) GetStockQuote(ctx context.Context, symbol string) (*entities.ProviderQuote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	var resp quoteResponse
	if err := c.pipeline.Decode(ctx, c.get("/quote", map[string]string{"symbol": symbol}), &resp); err != nil {
		return nil, err
	}
	if resp.empty() {
		return nil, apiclient.NewError(ProviderName, apiclient.KindNotFound, fmt.Sprintf("No quote data for %s", symbol))
	}

	quote := &entities.ProviderQuote{
		Symbol:        symbol,
		Price:         resp.Current,
		Change:        resp.Change,
		ChangePercent: resp.ChangePercent,
		High:          resp.High,
		Low:           resp.Low,
		Open:          resp.Open,
		PreviousClose: resp.PreviousClose,
		Timestamp:     resp.Timestamp,
		Source:        ProviderName,
	}
	if resp.Timestamp > 0 {
		quote.LatestDay = time.Unix(resp.Timestamp, 0).UTC().Format("2006-01-02")
	}
	return quote, nil
}

// GetCompanyProfile returns company metadata, or nil when Finnhub has none
func (c *Client) GetCompanyProfile(ctx context.Context, symbol string) (*entities.CompanyProfile, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	req := c.get("/stock/profile2", map[string]string{"symbol": symbol})
	req.TTL = time.Hour

	var profile entities.CompanyProfile
	if err := c.pipeline.Decode(ctx, req, &profile); err != nil {
		return nil, err
	}
	if profile.Name == "" {
		return nil, nil
	}
	if profile.Ticker == "" {
		profile.Ticker = symbol
	}
	return &profile, nil
}

// GetEnhancedStockQuotes fetches a quote, and optionally the profile, per
// symbol. Symbols that fail are skipped.
func (c *Client) GetEnhancedStockQuotes(ctx context.Context, symbols []string, includeProfile bool) ([]entities.ProviderQuote, error) {
	return providers.FanOut(ctx, ProviderName, c.pacer, symbols, func(ctx context.Context, symbol string) (entities.ProviderQuote, error) {
		quote, err := c.GetStockQuote(ctx, symbol)
		if err != nil {
			return entities.ProviderQuote{}, err
		}
		if includeProfile {
			// a missing profile does not fail the quote
			if profile, perr := c.GetCompanyProfile(ctx, symbol); perr == nil {
				quote.Profile = profile
			}
		}
		return *quote, nil
	})
}

// GetStockQuotes implements interfaces.StockProvider
func (c *Client) GetStockQuotes(ctx context.Context, symbols []string, includeProfile bool) ([]entities.ProviderQuote, error) {
	return c.GetEnhancedStockQuotes(ctx, symbols, includeProfile)
}

// GetCandles returns OHLCV bars between from and to in chronological order
func (c *Client) GetCandles(ctx context.Context, symbol, resolution string, from, to time.Time) ([]entities.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if resolution == "" {
		resolution = "D"
	}

	req := c.get("/stock/candle", map[string]string{
		"symbol":     symbol,
		"resolution": resolution,
		"from":       strconv.FormatInt(from.Unix(), 10),
		"to":         strconv.FormatInt(to.Unix(), 10),
	})

	var resp candleResponse
	if err := c.pipeline.Decode(ctx, req, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "ok":
	case "no_data":
		return []entities.Candle{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrCandleStatus, resp.Status)
	}

	n := len(resp.Close)
	if len(resp.Timestamp) != n || len(resp.Open) != n || len(resp.High) != n || len(resp.Low) != n {
		return nil, ErrCandleMalformed
	}

	candles := make([]entities.Candle, 0, n)
	for i := 0; i < n; i++ {
		candle := entities.Candle{
			Date:      time.Unix(resp.Timestamp[i], 0).UTC().Format("2006-01-02"),
			Timestamp: resp.Timestamp[i],
			Open:      resp.Open[i],
			High:      resp.High[i],
			Low:       resp.Low[i],
			Close:     resp.Close[i],
		}
		if i < len(resp.Volume) {
			candle.Volume = resp.Volume[i]
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// GetHistoricalData implements interfaces.HistoricalProvider over the last 30 days
func (c *Client) GetHistoricalData(ctx context.Context, symbol, _ string, interval string) ([]entities.Candle, error) {
	to := c.now()
	return c.GetCandles(ctx, symbol, Resolution(interval), to.Add(-defaultPeriod), to)
}

// GetMarketStatus reports whether exchange is currently trading
func (c *Client) GetMarketStatus(ctx context.Context, exchange string) (*entities.MarketStatus, error) {
	if exchange == "" {
		exchange = "US"
	}

	req := c.get("/stock/market-status", map[string]string{"exchange": exchange})
	req.TTL = time.Minute

	var resp marketStatusResponse
	if err := c.pipeline.Decode(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &entities.MarketStatus{
		Exchange:  resp.Exchange,
		IsOpen:    resp.IsOpen,
		Session:   resp.Session,
		Timezone:  resp.Timezone,
		Timestamp: resp.Timestamp,
	}, nil
}

// Ping fetches a single uncached quote
func (c *Client) Ping(ctx context.Context) (json.RawMessage, error) {
	req := c.get("/quote", map[string]string{"symbol": "AAPL"})
	req.SkipCache = true
	return c.pipeline.MakeRequest(ctx, req)
}

// Resolution maps widget intervals onto Finnhub candle resolutions
func Resolution(interval string) string {
	switch strings.ToLower(interval) {
	case "1min", "1m", "1":
		return "1"
	case "5min", "5m", "5":
		return "5"
	case "15min", "15m", "15":
		return "15"
	case "30min", "30m", "30":
		return "30"
	case "60min", "1h", "60":
		return "60"
	case "weekly", "1w", "w":
		return "W"
	case "monthly", "1mo", "m":
		return "M"
	default:
		return "D"
	}
}
