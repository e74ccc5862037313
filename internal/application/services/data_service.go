package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"finboard-service/internal/domain/entities"
	"finboard-service/internal/domain/interfaces"
	"finboard-service/internal/infrastructure/apiclient"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"
	"finboard-service/internal/infrastructure/providers/exchangerate"
)

const (
	DefaultDedupTTL    = 30 * time.Second // Lifetime of a DataService level result
	DefaultCryptoLimit = 20
	DefaultChartSymbol = "AAPL"
	DefaultCoinID      = "bitcoin"
	DefaultChartDays   = 30
	DefaultVsCurrency  = "usd"
	summaryWatchlist   = 5
)

var (
	ErrAllStockSourcesFailed = errors.New("all stock data sources failed")
	ErrUnknownSource         = errors.New("unknown data source")
	ErrCustomURLRequired     = errors.New("API URL is required")
	ErrProviderUnavailable   = errors.New("provider not configured")
)

// Providers are the clients DataService routes to
type Providers struct {
	Stocks         interfaces.StockProvider      // primary quotes (finnhub)
	StocksFallback interfaces.StockProvider      // secondary quotes (alpha vantage)
	Crypto         interfaces.CryptoProvider     // coingecko
	Forex          interfaces.ForexProvider      // exchangerate-api
	Charts         interfaces.HistoricalProvider // daily/weekly/monthly series
	Intraday       interfaces.HistoricalProvider // intraday candles
	Custom         interfaces.CustomAPIClient
}

// DataService resolves logical data sources into normalized data
type DataService struct {
	providers      Providers
	cache          *apiclient.APICache
	group          singleflight.Group
	dedupTTL       time.Duration
	popularSymbols []string
	cryptoLimit    int
	now            func() time.Time
}

// Option configures a DataService
type Option func(*DataService)

// WithDedupTTL sets how long a fetched result is reused
func WithDedupTTL(ttl time.Duration) Option {
	return func(s *DataService) {
		if ttl > 0 {
			s.dedupTTL = ttl
		}
	}
}

// WithPopularSymbols sets the symbols used when a stock request names none
func WithPopularSymbols(symbols []string) Option {
	return func(s *DataService) {
		if len(symbols) > 0 {
			s.popularSymbols = symbols
		}
	}
}

// WithDefaultCryptoLimit sets the market list size used when none is requested
func WithDefaultCryptoLimit(limit int) Option {
	return func(s *DataService) {
		if limit > 0 {
			s.cryptoLimit = limit
		}
	}
}

// WithResultCache replaces the de-dup cache, mainly to inject a clock in tests
func WithResultCache(cache *apiclient.APICache) Option {
	return func(s *DataService) {
		s.cache = cache
	}
}

// NewDataService creates the dispatch facade over the given providers
func NewDataService(providers Providers, opts ...Option) *DataService {
	s := &DataService{
		providers:      providers,
		dedupTTL:       DefaultDedupTTL,
		popularSymbols: []string{"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN", "NVDA", "META", "NFLX"},
		cryptoLimit:    DefaultCryptoLimit,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = apiclient.NewAPICache()
	}
	return s
}

// FetchData routes source to its provider chain. Identical requests inside
// the de-dup window return the stored result; ForceRefresh skips that read
// but still stores the fresh result.
func (s *DataService) FetchData(ctx context.Context, source entities.DataSource, opts entities.FetchOptions) (any, error) {
	key := s.dedupKey(source, opts)

	if !opts.ForceRefresh {
		if data, ok := s.cache.Get(key); ok {
			metrics.RecordDataRequest(string(source), "hit")
			logging.Cache().Hit(ctx, key, "data_service")
			return data, nil
		}
	}

	// the shared call outlives any single caller
	detached := context.WithoutCancel(ctx)
	data, err, wasShared := s.group.Do(key, func() (any, error) {
		data, err := s.route(detached, source, opts)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, data, s.dedupTTL)
		return data, nil
	})
	if err != nil {
		metrics.RecordDataRequest(string(source), "error")
		logging.WarnWithError(ctx, "Data source fetch failed", err, logging.Fields{
			logging.FieldDataSource: string(source),
		})
		return nil, err
	}

	metrics.RecordDataRequest(string(source), "fetched")
	logging.Debug(ctx, "Data source fetched", logging.Fields{
		logging.FieldDataSource: string(source),
		"shared":                wasShared,
	})
	return data, nil
}

// ClearCache drops every de-duplicated result
func (s *DataService) ClearCache() {
	s.cache.Clear()
	logging.Info(context.Background(), "Data service cache cleared", nil)
}

func (s *DataService) dedupKey(source entities.DataSource, opts entities.FetchOptions) string {
	opts.ForceRefresh = false
	raw, err := json.Marshal(opts)
	if err != nil {
		return string(source)
	}
	return string(source) + "-" + string(raw)
}

func (s *DataService) route(ctx context.Context, source entities.DataSource, opts entities.FetchOptions) (any, error) {
	switch source {
	case entities.SourceStocks:
		return s.fetchStockData(ctx, opts)
	case entities.SourceMarketGainers, entities.SourceMarketLosers:
		return s.fetchMovers(ctx, source, opts)
	case entities.SourceCrypto, entities.SourceCryptoChart:
		return s.fetchCryptoData(ctx, source, opts)
	case entities.SourceForex:
		return s.fetchForexData(ctx, opts)
	case entities.SourceMarketSummary, entities.SourceWatchlist,
		entities.SourcePerformanceData, entities.SourceFinancialData:
		return s.fetchMarketSummaryData(ctx)
	case entities.SourceChartData, entities.SourceMarketTrends:
		return s.fetchChartData(ctx, opts)
	case entities.SourceCustom:
		return s.fetchCustomAPIData(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
}

func (s *DataService) fetchStockData(ctx context.Context, opts entities.FetchOptions) ([]entities.StockQuote, error) {
	symbols := opts.Symbols
	if len(symbols) == 0 {
		symbols = s.popularSymbols
	}

	primary, primaryErr := s.quotes(ctx, s.providers.Stocks, symbols, opts.IncludeProfile)
	if primaryErr == nil {
		return normalizeStocksAt(primary, opts.IncludeProfile, s.now()), nil
	}

	from, to := providerName(s.providers.Stocks), providerName(s.providers.StocksFallback)
	logging.ExternalAPI().FallbackActivated(ctx, from, to, primaryErr)
	metrics.RecordFallbackActivation("stocks", from, to)

	secondary, secondaryErr := s.quotes(ctx, s.providers.StocksFallback, symbols, opts.IncludeProfile)
	if secondaryErr != nil {
		return nil, fmt.Errorf("%w: %s: %v; %s: %v", ErrAllStockSourcesFailed, from, primaryErr, to, secondaryErr)
	}
	return normalizeStocksAt(secondary, opts.IncludeProfile, s.now()), nil
}

func (s *DataService) quotes(ctx context.Context, p interfaces.StockProvider, symbols []string, includeProfile bool) ([]entities.ProviderQuote, error) {
	if p == nil {
		return nil, ErrProviderUnavailable
	}
	return p.GetStockQuotes(ctx, symbols, includeProfile)
}

func providerName(p interfaces.StockProvider) string {
	if p == nil {
		return "none"
	}
	return p.Name()
}

// fetchMovers ranks the requested stocks by daily change
func (s *DataService) fetchMovers(ctx context.Context, source entities.DataSource, opts entities.FetchOptions) ([]entities.StockQuote, error) {
	quotes, err := s.fetchStockData(ctx, opts)
	if err != nil {
		return nil, err
	}

	gainers := source == entities.SourceMarketGainers
	sort.SliceStable(quotes, func(i, j int) bool {
		if gainers {
			return quotes[i].ChangePercent > quotes[j].ChangePercent
		}
		return quotes[i].ChangePercent < quotes[j].ChangePercent
	})
	if opts.Limit > 0 && opts.Limit < len(quotes) {
		quotes = quotes[:opts.Limit]
	}
	return quotes, nil
}

func (s *DataService) fetchCryptoData(ctx context.Context, source entities.DataSource, opts entities.FetchOptions) (any, error) {
	if s.providers.Crypto == nil {
		return nil, fmt.Errorf("crypto data source failed: %w", ErrProviderUnavailable)
	}
	vs := opts.VsCurrency
	if vs == "" {
		vs = DefaultVsCurrency
	}

	if source == entities.SourceCryptoChart {
		coin := strings.ToLower(opts.Symbol)
		if coin == "" {
			coin = DefaultCoinID
		}
		days := opts.Days
		if days <= 0 {
			days = DefaultChartDays
		}
		candles, err := s.providers.Crypto.GetMarketChart(ctx, coin, days, vs)
		if err != nil {
			return nil, fmt.Errorf("crypto data source failed: %w", err)
		}
		return candles, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.cryptoLimit
	}
	assets, err := s.providers.Crypto.GetCryptoMarkets(ctx, vs, limit)
	if err != nil {
		return nil, fmt.Errorf("crypto data source failed: %w", err)
	}
	return assets, nil
}

func (s *DataService) fetchForexData(ctx context.Context, opts entities.FetchOptions) ([]entities.ForexPair, error) {
	if s.providers.Forex == nil {
		return nil, fmt.Errorf("forex data source failed: %w", ErrProviderUnavailable)
	}

	if strings.Contains(opts.Pair, "/") {
		from, to, err := exchangerate.ParsePair(opts.Pair)
		if err != nil {
			return nil, fmt.Errorf("forex data source failed: %w", err)
		}
		pair, err := s.providers.Forex.GetPairRate(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("forex data source failed: %w", err)
		}
		return []entities.ForexPair{*pair}, nil
	}

	pairs, err := s.providers.Forex.GetPopularForexPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("forex data source failed: %w", err)
	}
	return pairs, nil
}

func (s *DataService) fetchMarketSummaryData(ctx context.Context) (*entities.MarketSummary, error) {
	if s.providers.Crypto == nil {
		return nil, fmt.Errorf("market summary data source failed: %w", ErrProviderUnavailable)
	}

	var gainers, losers, watch []entities.CryptoAsset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gainers, losers, err = s.providers.Crypto.GetGainersLosers(gctx, DefaultVsCurrency)
		return err
	})
	g.Go(func() error {
		var err error
		watch, err = s.providers.Crypto.GetCryptoMarkets(gctx, DefaultVsCurrency, summaryWatchlist)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("market summary data source failed: %w", err)
	}

	return &entities.MarketSummary{
		Watchlist:   toSummaryItems(watch),
		Gainers:     toSummaryItems(gainers),
		Losers:      toSummaryItems(losers),
		Indices:     []entities.SummaryItem{},
		Commodities: []entities.SummaryItem{},
	}, nil
}

func (s *DataService) fetchChartData(ctx context.Context, opts entities.FetchOptions) ([]entities.Candle, error) {
	symbol := strings.ToUpper(opts.Symbol)
	if symbol == "" {
		symbol = DefaultChartSymbol
	}
	timeframe := opts.Timeframe
	if timeframe == "" {
		timeframe = "daily"
	}

	provider := s.providers.Intraday
	switch timeframe {
	case "daily", "weekly", "monthly":
		provider = s.providers.Charts
	}
	if provider == nil {
		return nil, fmt.Errorf("chart data source failed: %w", ErrProviderUnavailable)
	}

	candles, err := provider.GetHistoricalData(ctx, symbol, timeframe, opts.Interval)
	if err != nil {
		return nil, fmt.Errorf("chart data source failed: %w", err)
	}
	return candles, nil
}

func (s *DataService) fetchCustomAPIData(ctx context.Context, opts entities.FetchOptions) (any, error) {
	if strings.TrimSpace(opts.APIURL) == "" {
		return nil, ErrCustomURLRequired
	}
	if s.providers.Custom == nil {
		return nil, fmt.Errorf("custom API call failed: %w", ErrProviderUnavailable)
	}

	data, err := s.providers.Custom.Fetch(ctx, interfaces.CustomRequest{
		URL:     opts.APIURL,
		Method:  opts.Method,
		Headers: opts.Headers,
		Body:    opts.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("custom API call failed: %w", err)
	}
	return data, nil
}
