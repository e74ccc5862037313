package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"finboard-service/internal/domain/entities"
	"finboard-service/internal/infrastructure/apiclient"
	"finboard-service/internal/infrastructure/providers"
)

const (
	ProviderName    = "alphavantage"
	DefaultBaseURL  = "https://www.alphavantage.co/query"
	DefaultPacing   = 12 * time.Second
	DefaultInterval = "5min"
)

var timeframeFunctions = map[string]string{
	"daily":   "TIME_SERIES_DAILY",
	"weekly":  "TIME_SERIES_WEEKLY",
	"monthly": "TIME_SERIES_MONTHLY",
}

var intradayIntervals = map[string]bool{
	"1min": true, "5min": true, "15min": true, "30min": true, "60min": true,
}

// Client talks to Alpha Vantage. Its free tier allows 5 calls per minute,
// so multi-symbol loops are paced.
type Client struct {
	baseURL  string
	pipeline *apiclient.Pipeline
	pacer    *apiclient.Pacer
}

// NewClient creates an Alpha Vantage client with the key sent as apikey
func NewClient(cfg providers.Config, opts ...apiclient.PipelineOption) *Client {
	caps := apiclient.Capabilities{
		Provider: ProviderName,
		Auth: apiclient.AuthPlacement{
			Mode: apiclient.AuthQuery,
			Name: "apikey",
			Key:  cfg.APIKey,
		},
		Inspect: inspect,
	}

	return &Client{
		baseURL:  cfg.BaseURLOr(DefaultBaseURL),
		pipeline: apiclient.NewPipeline(caps, cfg.PipelineConfig(), opts...),
		pacer:    apiclient.NewPacer(cfg.Pacing),
	}
}

// inspect rejects error payloads. A Note or Information only counts as a
// failure when the body carries no data next to it.
func inspect(body []byte) apiclient.Verdict {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return apiclient.Ok()
	}

	if raw, ok := top["Error Message"]; ok {
		return apiclient.Verdict{Kind: apiclient.KindProvider, Message: stringValue(raw)}
	}

	note, hasNote := top["Note"]
	info, hasInfo := top["Information"]
	if !hasNote && !hasInfo {
		return apiclient.Ok()
	}
	for key := range top {
		if key != "Note" && key != "Information" {
			return apiclient.Ok()
		}
	}

	if hasNote {
		return apiclient.Verdict{Kind: apiclient.KindRateLimited, Message: apiclient.MsgRateLimit, Detail: stringValue(note)}
	}
	text := stringValue(info)
	lower := strings.ToLower(text)
	if strings.Contains(lower, "call frequency") || strings.Contains(lower, "rate limit") {
		return apiclient.Verdict{Kind: apiclient.KindRateLimited, Message: apiclient.MsgRateLimit, Detail: text}
	}
	return apiclient.Verdict{Kind: apiclient.KindProvider, Message: text}
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

// Name returns the provider name
func (c *Client) Name() string {
	return ProviderName
}

// Pipeline exposes the underlying request pipeline
func (c *Client) Pipeline() *apiclient.Pipeline {
	return c.pipeline
}

func (c *Client) query(function string, params map[string]string) apiclient.Request {
	all := map[string]string{"function": function}
	for k, v := range params {
		all[k] = v
	}
	return apiclient.Request{
		// every call shares one path, so the function is the endpoint label
		Endpoint: function,
		URL:      c.baseURL,
		Params:   all,
	}
}

// GetStockQuote returns the GLOBAL_QUOTE of symbol
func (c *Client) GetStockQuote(ctx context.Context, symbol string) (*entities.ProviderQuote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	var resp globalQuoteResponse
	if err := c.pipeline.Decode(ctx, c.query("GLOBAL_QUOTE", map[string]string{"symbol": symbol}), &resp); err != nil {
		return nil, err
	}

	q := resp.Quote
	if q.Symbol == "" && q.Price == "" {
		return nil, apiclient.NewError(ProviderName, apiclient.KindNotFound, fmt.Sprintf("No quote data found for symbol: %s", symbol))
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}

	quote := &entities.ProviderQuote{
		Symbol:        q.Symbol,
		Price:         parseNumber(q.Price),
		Change:        parseNumber(q.Change),
		ChangePercent: parseNumber(q.ChangePercent),
		High:          parseNumber(q.High),
		Low:           parseNumber(q.Low),
		Open:          parseNumber(q.Open),
		PreviousClose: parseNumber(q.PreviousClose),
		Volume:        parseInt(q.Volume),
		LatestDay:     q.LatestDay,
		Source:        ProviderName,
	}
	if day, err := time.Parse("2006-01-02", q.LatestDay); err == nil {
		quote.Timestamp = day.Unix()
	}
	return quote, nil
}

// GetMultipleStockQuotes fetches symbols sequentially, paced, skipping failures
func (c *Client) GetMultipleStockQuotes(ctx context.Context, symbols []string) ([]entities.ProviderQuote, error) {
	return providers.FanOut(ctx, ProviderName, c.pacer, symbols, func(ctx context.Context, symbol string) (entities.ProviderQuote, error) {
		quote, err := c.GetStockQuote(ctx, symbol)
		if err != nil {
			return entities.ProviderQuote{}, err
		}
		return *quote, nil
	})
}

// GetStockQuotes implements interfaces.StockProvider. Alpha Vantage has no
// profile endpoint on the free tier, so includeProfile is ignored.
func (c *Client) GetStockQuotes(ctx context.Context, symbols []string, _ bool) ([]entities.ProviderQuote, error) {
	return c.GetMultipleStockQuotes(ctx, symbols)
}

// GetTimeSeries returns the daily, weekly or monthly series in chronological order
func (c *Client) GetTimeSeries(ctx context.Context, symbol, timeframe string) ([]entities.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if timeframe == "" {
		timeframe = "daily"
	}
	function, ok := timeframeFunctions[strings.ToLower(timeframe)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimeframe, timeframe)
	}

	params := map[string]string{"symbol": symbol}
	if function == "TIME_SERIES_DAILY" {
		params["outputsize"] = "compact"
	}
	return c.fetchSeries(ctx, c.query(function, params), symbol)
}

// GetIntraday returns intraday bars for interval (1min to 60min)
func (c *Client) GetIntraday(ctx context.Context, symbol, interval string) ([]entities.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if interval == "" {
		interval = DefaultInterval
	}
	if !intradayIntervals[interval] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInterval, interval)
	}

	req := c.query("TIME_SERIES_INTRADAY", map[string]string{"symbol": symbol, "interval": interval})
	req.TTL = time.Minute
	return c.fetchSeries(ctx, req, symbol)
}

// GetHistoricalData implements interfaces.HistoricalProvider
func (c *Client) GetHistoricalData(ctx context.Context, symbol, timeframe, interval string) ([]entities.Candle, error) {
	if _, ok := timeframeFunctions[strings.ToLower(timeframe)]; ok || timeframe == "" {
		return c.GetTimeSeries(ctx, symbol, timeframe)
	}
	return c.GetIntraday(ctx, symbol, interval)
}

func (c *Client) fetchSeries(ctx context.Context, req apiclient.Request, symbol string) ([]entities.Candle, error) {
	var top map[string]json.RawMessage
	if err := c.pipeline.Decode(ctx, req, &top); err != nil {
		return nil, err
	}

	var table map[string]seriesBar
	for key, raw := range top {
		if !strings.Contains(key, "Time Series") {
			continue
		}
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, apiclient.NewMalformedError(ProviderName, err)
		}
		break
	}
	if table == nil {
		return nil, apiclient.NewError(ProviderName, apiclient.KindNotFound, fmt.Sprintf("No time series data found for symbol: %s", symbol))
	}

	candles := make([]entities.Candle, 0, len(table))
	for stamp, bar := range table {
		candle := entities.Candle{
			Date:   stamp,
			Open:   parseNumber(bar.Open),
			High:   parseNumber(bar.High),
			Low:    parseNumber(bar.Low),
			Close:  parseNumber(bar.Close),
			Volume: parseNumber(bar.Volume),
		}
		if t, err := parseStamp(stamp); err == nil {
			candle.Timestamp = t.Unix()
		}
		candles = append(candles, candle)
	}
	// keys are zero padded dates, so lexical order is chronological
	sort.Slice(candles, func(i, j int) bool { return candles[i].Date < candles[j].Date })
	return candles, nil
}

func parseStamp(stamp string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04:05", stamp); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", stamp)
}

// SearchSymbols runs SYMBOL_SEARCH for keywords
func (c *Client) SearchSymbols(ctx context.Context, keywords string) ([]entities.SymbolMatch, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return []entities.SymbolMatch{}, nil
	}

	req := c.query("SYMBOL_SEARCH", map[string]string{"keywords": keywords})
	req.TTL = time.Hour

	var resp searchResponse
	if err := c.pipeline.Decode(ctx, req, &resp); err != nil {
		return nil, err
	}

	matches := make([]entities.SymbolMatch, 0, len(resp.BestMatches))
	for _, m := range resp.BestMatches {
		matches = append(matches, entities.SymbolMatch{
			Symbol:     m.Symbol,
			Name:       m.Name,
			Type:       m.Type,
			Region:     m.Region,
			Currency:   m.Currency,
			MatchScore: parseNumber(m.MatchScore),
		})
	}
	return matches, nil
}

// Ping fetches an uncached quote
func (c *Client) Ping(ctx context.Context) (json.RawMessage, error) {
	req := c.query("GLOBAL_QUOTE", map[string]string{"symbol": "IBM"})
	req.SkipCache = true
	return c.pipeline.MakeRequest(ctx, req)
}
