package coingecko

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"finboard-service/internal/domain/entities"
	"finboard-service/internal/infrastructure/apiclient"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"
	"finboard-service/internal/infrastructure/providers"
)

const (
	ProviderName      = "coingecko"
	DefaultBaseURL    = "https://api.coingecko.com/api/v3"
	DefaultProBaseURL = "https://pro-api.coingecko.com/api/v3"
	DefaultVsCurrency = "usd"
	DefaultLimit      = 50
	MoversSampleSize  = 100
	MoversLimit       = 10

	proKeyPrefix = "CG-"
	proHeader    = "x-cg-pro-api-key"
	demoParam    = "x_cg_demo_api_key"
)

// Config adds the pro host to the common provider settings
type Config struct {
	providers.Config
	ProBaseURL string
}

// Client serves crypto market data. With a CG- key it calls the pro host and
// repeats a failed call once against the public host.
type Client struct {
	primary    *apiclient.Pipeline
	primaryURL string
	fallback   *apiclient.Pipeline
	publicURL  string
}

// NewClient creates a CoinGecko client. The key is optional.
func NewClient(cfg Config, opts ...apiclient.PipelineOption) *Client {
	pcfg := cfg.PipelineConfig()
	publicURL := strings.TrimRight(cfg.BaseURLOr(DefaultBaseURL), "/")

	// pro and public share one quota and one cache
	shared := []apiclient.PipelineOption{
		apiclient.WithRateLimiter(apiclient.NewRateLimiter(pcfg.MaxRequests, pcfg.Window)),
		apiclient.WithCache(apiclient.NewAPICache()),
	}
	opts = append(shared, opts...)

	key := strings.TrimSpace(cfg.APIKey)
	c := &Client{publicURL: publicURL}

	switch {
	case strings.HasPrefix(key, proKeyPrefix):
		proURL := cfg.ProBaseURL
		if proURL == "" {
			proURL = DefaultProBaseURL
		}
		c.primaryURL = strings.TrimRight(proURL, "/")
		c.primary = apiclient.NewPipeline(capabilities(apiclient.AuthPlacement{
			Mode: apiclient.AuthHeader,
			Name: proHeader,
			Key:  key,
		}), pcfg, opts...)
		c.fallback = apiclient.NewPipeline(capabilities(apiclient.AuthPlacement{}), pcfg, opts...)
	case key != "":
		c.primaryURL = publicURL
		c.primary = apiclient.NewPipeline(capabilities(apiclient.AuthPlacement{
			Mode:     apiclient.AuthQuery,
			Name:     demoParam,
			Key:      key,
			Optional: true,
		}), pcfg, opts...)
	default:
		c.primaryURL = publicURL
		c.primary = apiclient.NewPipeline(capabilities(apiclient.AuthPlacement{}), pcfg, opts...)
	}
	return c
}

func capabilities(auth apiclient.AuthPlacement) apiclient.Capabilities {
	return apiclient.Capabilities{
		Provider: ProviderName,
		Auth:     auth,
		Inspect:  inspect,
	}
}

// inspect handles {"status": {"error_code": ...}} and {"error": "..."} bodies
func inspect(body []byte) apiclient.Verdict {
	if len(body) == 0 || body[0] != '{' {
		return apiclient.Ok()
	}
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiclient.Ok()
	}

	if payload.Status != nil && payload.Status.ErrorCode != 0 {
		msg := payload.Status.ErrorMessage
		switch payload.Status.ErrorCode {
		case 429:
			return apiclient.Verdict{Kind: apiclient.KindRateLimited, Message: apiclient.MsgRateLimit}
		case 401, 10002, 10010, 10011:
			return apiclient.Verdict{Kind: apiclient.KindInvalidKey, Message: apiclient.MsgInvalidKey}
		case 403, 10005, 10006:
			return apiclient.Verdict{Kind: apiclient.KindQuotaExceeded, Message: apiclient.MsgQuotaExceeded}
		default:
			return apiclient.Verdict{Kind: apiclient.KindProvider, Message: msg}
		}
	}

	if payload.Error != "" {
		if strings.Contains(strings.ToLower(payload.Error), "not found") {
			return apiclient.Verdict{Kind: apiclient.KindNotFound, Message: payload.Error}
		}
		return apiclient.Verdict{Kind: apiclient.KindProvider, Message: payload.Error}
	}
	return apiclient.Ok()
}

// Name returns the provider name
func (c *Client) Name() string {
	return ProviderName
}

// UsesPro reports whether the client targets the paid host
func (c *Client) UsesPro() bool {
	return c.fallback != nil
}

// Pipeline exposes the primary request pipeline
func (c *Client) Pipeline() *apiclient.Pipeline {
	return c.primary
}

func (c *Client) decode(ctx context.Context, path string, params map[string]string, ttl time.Duration, out any) error {
	return c.decodeRequest(ctx, apiclient.Request{Endpoint: path, Params: params, TTL: ttl}, path, out)
}

func (c *Client) decodeRequest(ctx context.Context, req apiclient.Request, path string, out any) error {
	req.URL = c.primaryURL + path
	err := c.primary.Decode(ctx, req, out)
	if err == nil || c.fallback == nil || ctx.Err() != nil {
		return err
	}

	logging.ExternalAPI().FallbackActivated(ctx, "coingecko_pro", "coingecko_public", err)
	metrics.RecordFallbackActivation("crypto", "coingecko_pro", "coingecko_public")

	req.URL = c.publicURL + path
	return c.fallback.Decode(ctx, req, out)
}

// GetCryptoMarkets returns the top coins by market cap
func (c *Client) GetCryptoMarkets(ctx context.Context, vsCurrency string, limit int) ([]entities.CryptoAsset, error) {
	if vsCurrency == "" {
		vsCurrency = DefaultVsCurrency
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > 250 {
		limit = 250
	}

	var coins []marketCoin
	params := map[string]string{
		"vs_currency":             strings.ToLower(vsCurrency),
		"order":                   "market_cap_desc",
		"per_page":                strconv.Itoa(limit),
		"page":                    "1",
		"sparkline":               "false",
		"price_change_percentage": "24h,7d",
	}
	if err := c.decode(ctx, "/coins/markets", params, time.Minute, &coins); err != nil {
		return nil, err
	}

	assets := make([]entities.CryptoAsset, 0, len(coins))
	for _, coin := range coins {
		assets = append(assets, toAsset(coin))
	}
	return assets, nil
}

func toAsset(coin marketCoin) entities.CryptoAsset {
	asset := entities.CryptoAsset{
		ID:                coin.ID,
		Symbol:            strings.ToUpper(coin.Symbol),
		Name:              coin.Name,
		Image:             coin.Image,
		Price:             deref(coin.CurrentPrice),
		Change:            deref(coin.PriceChange24h),
		ChangePercent:     deref(coin.PriceChangePercentage24h),
		Change24h:         deref(coin.PriceChange24h),
		ChangePercent24h:  deref(coin.PriceChangePercentage24h),
		ChangePercent7d:   coin.PriceChangePercentage7d,
		High:              deref(coin.High24h),
		Low:               deref(coin.Low24h),
		Volume:            deref(coin.TotalVolume),
		MarketCap:         deref(coin.MarketCap),
		CirculatingSupply: deref(coin.CirculatingSupply),
		TotalSupply:       coin.TotalSupply,
		MaxSupply:         coin.MaxSupply,
		ATH:               deref(coin.ATH),
		ATL:               deref(coin.ATL),
		LastUpdated:       coin.LastUpdated,
	}
	if coin.MarketCapRank != nil {
		asset.MarketCapRank = *coin.MarketCapRank
	}
	return asset
}

// GetCoin returns the USD market data of a single coin
func (c *Client) GetCoin(ctx context.Context, id string) (*entities.CryptoAsset, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, apiclient.NewError(ProviderName, apiclient.KindBadRequest, "coin id cannot be empty")
	}

	params := map[string]string{
		"localization":   "false",
		"tickers":        "false",
		"market_data":    "true",
		"community_data": "false",
		"developer_data": "false",
		"sparkline":      "false",
	}
	var detail coinDetail
	if err := c.decodeRequest(ctx, apiclient.Request{Endpoint: "/coins/{id}", Params: params, TTL: time.Minute},
		"/coins/"+url.PathEscape(id), &detail); err != nil {
		return nil, err
	}

	md := detail.MarketData
	vs := DefaultVsCurrency
	asset := &entities.CryptoAsset{
		ID:                detail.ID,
		Symbol:            strings.ToUpper(detail.Symbol),
		Name:              detail.Name,
		Image:             detail.Image.Large,
		Price:             md.CurrentPrice[vs],
		Change:            deref(md.PriceChange24h),
		ChangePercent:     deref(md.PriceChangePercentage24h),
		Change24h:         deref(md.PriceChange24h),
		ChangePercent24h:  deref(md.PriceChangePercentage24h),
		ChangePercent7d:   md.PriceChangePercentage7d,
		High:              md.High24h[vs],
		Low:               md.Low24h[vs],
		Volume:            md.TotalVolume[vs],
		MarketCap:         md.MarketCap[vs],
		CirculatingSupply: deref(md.CirculatingSupply),
		TotalSupply:       md.TotalSupply,
		MaxSupply:         md.MaxSupply,
		ATH:               md.ATH[vs],
		ATL:               md.ATL[vs],
		LastUpdated:       md.LastUpdated,
	}
	if detail.MarketCapRank != nil {
		asset.MarketCapRank = *detail.MarketCapRank
	}
	return asset, nil
}

// GetSimplePrices returns price, 24h change and volume for ids in the given order
func (c *Client) GetSimplePrices(ctx context.Context, ids []string, vsCurrency string) ([]entities.CryptoAsset, error) {
	if len(ids) == 0 {
		return []entities.CryptoAsset{}, nil
	}
	if vsCurrency == "" {
		vsCurrency = DefaultVsCurrency
	}
	vs := strings.ToLower(vsCurrency)

	params := map[string]string{
		"ids":                     strings.ToLower(strings.Join(ids, ",")),
		"vs_currencies":           vs,
		"include_24hr_change":     "true",
		"include_24hr_vol":        "true",
		"include_last_updated_at": "true",
	}
	var resp map[string]map[string]float64
	if err := c.decode(ctx, "/simple/price", params, time.Minute, &resp); err != nil {
		return nil, err
	}

	assets := make([]entities.CryptoAsset, 0, len(resp))
	for _, id := range ids {
		data, ok := resp[strings.ToLower(id)]
		if !ok {
			continue
		}
		asset := entities.CryptoAsset{
			ID:               strings.ToLower(id),
			Price:            data[vs],
			ChangePercent:    data[vs+"_24h_change"],
			ChangePercent24h: data[vs+"_24h_change"],
			Volume:           data[vs+"_24h_vol"],
		}
		if ts := data["last_updated_at"]; ts > 0 {
			asset.LastUpdated = time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// GetMarketChart returns one candle per price point. CoinGecko only reports
// a single price per point, so open, high, low and close are equal.
func (c *Client) GetMarketChart(ctx context.Context, coinID string, days int, vsCurrency string) ([]entities.Candle, error) {
	coinID = strings.ToLower(strings.TrimSpace(coinID))
	if coinID == "" {
		return nil, apiclient.NewError(ProviderName, apiclient.KindBadRequest, "coin id cannot be empty")
	}
	if days <= 0 {
		days = 30
	}
	if vsCurrency == "" {
		vsCurrency = DefaultVsCurrency
	}

	params := map[string]string{
		"vs_currency": strings.ToLower(vsCurrency),
		"days":        strconv.Itoa(days),
	}
	var chart marketChart
	if err := c.decodeRequest(ctx, apiclient.Request{Endpoint: "/coins/{id}/market_chart", Params: params, TTL: 5 * time.Minute},
		"/coins/"+url.PathEscape(coinID)+"/market_chart", &chart); err != nil {
		return nil, err
	}

	candles := make([]entities.Candle, 0, len(chart.Prices))
	for i, point := range chart.Prices {
		ts := time.UnixMilli(int64(point[0])).UTC()
		candle := entities.Candle{
			Date:      ts.Format("2006-01-02"),
			Timestamp: ts.Unix(),
			Open:      point[1],
			High:      point[1],
			Low:       point[1],
			Close:     point[1],
		}
		if i < len(chart.TotalVolumes) {
			candle.Volume = chart.TotalVolumes[i][1]
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// GetTrending returns the trending search list
func (c *Client) GetTrending(ctx context.Context) ([]entities.TrendingCoin, error) {
	var resp trendingResponse
	if err := c.decode(ctx, "/search/trending", nil, 10*time.Minute, &resp); err != nil {
		return nil, err
	}

	coins := make([]entities.TrendingCoin, 0, len(resp.Coins))
	for _, coin := range resp.Coins {
		item := coin.Item
		thumb := item.Large
		if thumb == "" {
			thumb = item.Thumb
		}
		coins = append(coins, entities.TrendingCoin{
			ID:            item.ID,
			Symbol:        item.Symbol,
			Name:          item.Name,
			MarketCapRank: item.MarketCapRank,
			Thumb:         thumb,
			PriceBTC:      item.PriceBTC,
			Score:         item.Score,
		})
	}
	return coins, nil
}

// GetGainersLosers ranks the top 100 coins by 24h change and keeps ten of each side
func (c *Client) GetGainersLosers(ctx context.Context, vsCurrency string) (gainers, losers []entities.CryptoAsset, err error) {
	markets, err := c.GetCryptoMarkets(ctx, vsCurrency, MoversSampleSize)
	if err != nil {
		return nil, nil, err
	}
	gainers, losers = RankMovers(markets, MoversLimit)
	return gainers, losers, nil
}

// RankMovers splits assets into positive movers sorted descending and
// negative movers sorted ascending, each capped at limit.
func RankMovers(assets []entities.CryptoAsset, limit int) (gainers, losers []entities.CryptoAsset) {
	gainers = make([]entities.CryptoAsset, 0, limit)
	losers = make([]entities.CryptoAsset, 0, limit)
	for _, a := range assets {
		switch {
		case a.ChangePercent24h > 0:
			gainers = append(gainers, a)
		case a.ChangePercent24h < 0:
			losers = append(losers, a)
		}
	}

	sort.SliceStable(gainers, func(i, j int) bool { return gainers[i].ChangePercent24h > gainers[j].ChangePercent24h })
	sort.SliceStable(losers, func(i, j int) bool { return losers[i].ChangePercent24h < losers[j].ChangePercent24h })

	if len(gainers) > limit {
		gainers = gainers[:limit]
	}
	if len(losers) > limit {
		losers = losers[:limit]
	}
	return gainers, losers
}

// Ping calls the uncached /ping endpoint
func (c *Client) Ping(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.decodeRequest(ctx, apiclient.Request{Endpoint: "/ping", SkipCache: true}, "/ping", &raw)
	return raw, err
}
