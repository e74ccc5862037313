package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"finboard-service/internal/domain/entities"
	"finboard-service/internal/infrastructure/apiclient"
	"finboard-service/internal/infrastructure/providers"
)

const (
	ProviderName   = "exchangerate"
	DefaultBaseURL = "https://v6.exchangerate-api.com/v6"
	DefaultPacing  = time.Second
)

// PopularPairs are the majors served to forex widgets without a pair
var PopularPairs = []string{"EUR/USD", "GBP/USD", "USD/JPY", "USD/CHF", "AUD/USD", "USD/CAD"}

// errorKinds maps the v6 error-type values onto the error taxonomy
var errorKinds = map[string]apiclient.ErrorKind{
	"invalid-key":           apiclient.KindInvalidKey,
	"inactive-account":      apiclient.KindInvalidKey,
	"quota-reached":         apiclient.KindQuotaExceeded,
	"unsupported-code":      apiclient.KindBadRequest,
	"malformed-request":     apiclient.KindBadRequest,
	"base-code-only-on-pro": apiclient.KindBadRequest,
}

// Client talks to ExchangeRate-API v6. The key is part of the path, so
// every request carries an explicit endpoint label.
type Client struct {
	baseURL  string
	apiKey   string
	pipeline *apiclient.Pipeline
	pacer    *apiclient.Pacer
}

// NewClient creates an ExchangeRate-API client
func NewClient(cfg providers.Config, opts ...apiclient.PipelineOption) *Client {
	caps := apiclient.Capabilities{
		Provider: ProviderName,
		Auth: apiclient.AuthPlacement{
			Mode: apiclient.AuthPath,
			Key:  cfg.APIKey,
		},
		Inspect: inspect,
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURLOr(DefaultBaseURL), "/"),
		apiKey:   cfg.APIKey,
		pipeline: apiclient.NewPipeline(caps, cfg.PipelineConfig(), opts...),
		pacer:    apiclient.NewPacer(cfg.Pacing),
	}
}

func inspect(body []byte) apiclient.Verdict {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Result != "error" {
		return apiclient.Ok()
	}

	kind, ok := errorKinds[env.ErrorType]
	if !ok {
		kind = apiclient.KindProvider
	}
	msg := env.ErrorType
	switch kind {
	case apiclient.KindInvalidKey:
		msg = apiclient.MsgInvalidKey
	case apiclient.KindQuotaExceeded:
		msg = apiclient.MsgQuotaExceeded
	}
	if msg == "" {
		msg = "API Error"
	}
	return apiclient.Verdict{Kind: kind, Message: msg}
}

// Name returns the provider name
func (c *Client) Name() string {
	return ProviderName
}

// Pipeline exposes the underlying request pipeline
func (c *Client) Pipeline() *apiclient.Pipeline {
	return c.pipeline
}

// request builds /{key}/{segments...}; endpoint is the key-free label
func (c *Client) request(endpoint string, ttl time.Duration, segments ...string) apiclient.Request {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, c.baseURL, url.PathEscape(c.apiKey))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return apiclient.Request{
		Endpoint: endpoint,
		URL:      strings.Join(parts, "/"),
		TTL:      ttl,
	}
}

// GetLatestRates returns the conversion table of base
func (c *Client) GetLatestRates(ctx context.Context, base string) (*entities.CurrencyRates, error) {
	if base == "" {
		base = "USD"
	}
	base, err := normalizeCode(base)
	if err != nil {
		return nil, err
	}

	var resp latestResponse
	if err := c.pipeline.Decode(ctx, c.request("/latest/{base}", 0, "latest", base), &resp); err != nil {
		return nil, err
	}

	return &entities.CurrencyRates{
		Base:        resp.BaseCode,
		Rates:       resp.ConversionRates,
		LastUpdated: formatUnix(resp.TimeLastUpdateUnix),
		NextUpdate:  formatUnix(resp.TimeNextUpdateUnix),
	}, nil
}

// GetPairRate returns the rate between from and to. Change fields stay
// unset because the API does not report them.
func (c *Client) GetPairRate(ctx context.Context, from, to string) (*entities.ForexPair, error) {
	from, to, err := normalizePair(from, to)
	if err != nil {
		return nil, err
	}

	var resp pairResponse
	if err := c.pipeline.Decode(ctx, c.request("/pair/{from}/{to}", 0, "pair", from, to), &resp); err != nil {
		return nil, err
	}
	return toPair(from, to, resp), nil
}

// GetEnrichedRate returns the rate together with amount converted
func (c *Client) GetEnrichedRate(ctx context.Context, from, to string, amount float64) (*entities.ForexPair, error) {
	from, to, err := normalizePair(from, to)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		amount = 1
	}

	amountText := strconv.FormatFloat(amount, 'f', -1, 64)
	var resp pairResponse
	req := c.request("/pair/{from}/{to}/{amount}", 0, "pair", from, to, amountText)
	if err := c.pipeline.Decode(ctx, req, &resp); err != nil {
		return nil, err
	}

	pair := toPair(from, to, resp)
	pair.Amount = amount
	pair.ConvertedAmount = resp.ConversionResult
	return pair, nil
}

// ConvertCurrency returns amount expressed in to
func (c *Client) ConvertCurrency(ctx context.Context, from, to string, amount float64) (float64, *entities.ForexPair, error) {
	pair, err := c.GetEnrichedRate(ctx, from, to, amount)
	if err != nil {
		return 0, nil, err
	}
	return pair.ConvertedAmount, pair, nil
}

// GetSupportedCurrencies lists the ISO codes the API can convert, sorted by code
func (c *Client) GetSupportedCurrencies(ctx context.Context) ([]entities.Currency, error) {
	var resp codesResponse
	if err := c.pipeline.Decode(ctx, c.request("/codes", 24*time.Hour, "codes"), &resp); err != nil {
		return nil, err
	}

	currencies := make([]entities.Currency, 0, len(resp.SupportedCodes))
	for _, code := range resp.SupportedCodes {
		currencies = append(currencies, entities.Currency{Code: code[0], Name: code[1]})
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i].Code < currencies[j].Code })
	return currencies, nil
}

// GetPopularForexPairs fetches the majors one by one, skipping failures
func (c *Client) GetPopularForexPairs(ctx context.Context) ([]entities.ForexPair, error) {
	return providers.FanOut(ctx, ProviderName, c.pacer, PopularPairs, func(ctx context.Context, pair string) (entities.ForexPair, error) {
		from, to, err := ParsePair(pair)
		if err != nil {
			return entities.ForexPair{}, err
		}
		p, err := c.GetPairRate(ctx, from, to)
		if err != nil {
			return entities.ForexPair{}, err
		}
		return *p, nil
	})
}

// Ping fetches uncached USD rates
func (c *Client) Ping(ctx context.Context) (json.RawMessage, error) {
	req := c.request("/latest/{base}", 0, "latest", "USD")
	req.SkipCache = true
	return c.pipeline.MakeRequest(ctx, req)
}

// ParsePair splits "EUR/USD" (or "EURUSD") into its codes
func ParsePair(pair string) (string, string, error) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	var from, to string
	switch {
	case strings.Contains(pair, "/"):
		parts := strings.Split(pair, "/")
		if len(parts) != 2 {
			return "", "", fmt.Errorf("%w: %s", ErrInvalidPair, pair)
		}
		from, to = parts[0], parts[1]
	case len(pair) == 6:
		from, to = pair[:3], pair[3:]
	default:
		return "", "", fmt.Errorf("%w: %s", ErrInvalidPair, pair)
	}
	return normalizePair(from, to)
}

func normalizePair(from, to string) (string, string, error) {
	from, err := normalizeCode(from)
	if err != nil {
		return "", "", err
	}
	to, err = normalizeCode(to)
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}

func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
	}
	return code, nil
}

func toPair(from, to string, resp pairResponse) *entities.ForexPair {
	base, target := resp.BaseCode, resp.TargetCode
	if base == "" {
		base = from
	}
	if target == "" {
		target = to
	}
	return &entities.ForexPair{
		Pair:         base + "/" + target,
		FromCurrency: base,
		ToCurrency:   target,
		Rate:         resp.ConversionRate,
		Price:        resp.ConversionRate,
		LastUpdated:  formatUnix(resp.TimeLastUpdateUnix),
		NextUpdate:   formatUnix(resp.TimeNextUpdateUnix),
	}
}

func formatUnix(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
