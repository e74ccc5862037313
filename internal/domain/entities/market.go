package entities

// ProviderQuote is the intermediate record every stock provider produces
// before DataService shapes it into a StockQuote.
type ProviderQuote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	High          float64
	Low           float64
	Open          float64
	PreviousClose float64
	Volume        int64
	Timestamp     int64
	LatestDay     string
	Source        string
	Profile       *CompanyProfile
}

// CompanyProfile holds static company metadata
type CompanyProfile struct {
	Name                 string  `json:"name"`
	Ticker               string  `json:"ticker"`
	Country              string  `json:"country,omitempty"`
	Currency             string  `json:"currency,omitempty"`
	Exchange             string  `json:"exchange,omitempty"`
	Industry             string  `json:"finnhubIndustry,omitempty"`
	IPO                  string  `json:"ipo,omitempty"`
	Logo                 string  `json:"logo,omitempty"`
	Phone                string  `json:"phone,omitempty"`
	WebURL               string  `json:"weburl,omitempty"`
	MarketCapitalization float64 `json:"marketCapitalization,omitempty"`
	ShareOutstanding     float64 `json:"shareOutstanding,omitempty"`
}

// StockQuote is the canonical stock record served to widgets. It carries
// both the short field names and the long aliases.
type StockQuote struct {
	Symbol string  `json:"symbol"`
	C      float64 `json:"c"`
	D      float64 `json:"d"`
	DP     float64 `json:"dp"`
	H      float64 `json:"h"`
	L      float64 `json:"l"`
	O      float64 `json:"o"`
	PC     float64 `json:"pc"`
	T      int64   `json:"t"`

	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previous_close"`
	Volume        int64   `json:"volume"`
	LastUpdated   string  `json:"last_updated"`
	Source        string  `json:"source,omitempty"`

	Name                 string   `json:"name,omitempty"`
	Company              string   `json:"company,omitempty"`
	Ticker               string   `json:"ticker,omitempty"`
	Country              string   `json:"country,omitempty"`
	Currency             string   `json:"currency,omitempty"`
	Exchange             string   `json:"exchange,omitempty"`
	MarketCapitalization *float64 `json:"marketCapitalization,omitempty"`
	ShareOutstanding     *float64 `json:"shareOutstanding,omitempty"`
	Industry             string   `json:"finnhubIndustry,omitempty"`
	IPO                  string   `json:"ipo,omitempty"`
	WebURL               string   `json:"weburl,omitempty"`
	Phone                string   `json:"phone,omitempty"`
	Logo                 string   `json:"logo,omitempty"`
	MarketCap            string   `json:"market_cap,omitempty"`
}

// CryptoAsset is the canonical crypto market record
type CryptoAsset struct {
	ID                string   `json:"id"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Image             string   `json:"image,omitempty"`
	Price             float64  `json:"price"`
	Change            float64  `json:"change"`
	ChangePercent     float64  `json:"change_percent"`
	Change24h         float64  `json:"change_24h"`
	ChangePercent24h  float64  `json:"change_percent_24h"`
	ChangePercent7d   *float64 `json:"change_percent_7d,omitempty"`
	High              float64  `json:"high"`
	Low               float64  `json:"low"`
	Volume            float64  `json:"volume"`
	MarketCap         float64  `json:"market_cap"`
	MarketCapRank     int      `json:"market_cap_rank"`
	CirculatingSupply float64  `json:"circulating_supply"`
	TotalSupply       *float64 `json:"total_supply,omitempty"`
	MaxSupply         *float64 `json:"max_supply,omitempty"`
	ATH               float64  `json:"ath"`
	ATL               float64  `json:"atl"`
	LastUpdated       string   `json:"last_updated"`
}

// TrendingCoin is one entry of the trending search list
type TrendingCoin struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	MarketCapRank int     `json:"market_cap_rank"`
	Thumb         string  `json:"thumb,omitempty"`
	PriceBTC      float64 `json:"price_btc"`
	Score         int     `json:"score"`
}

// ForexPair is the canonical currency pair record. Change fields are only
// set when a provider reports them.
type ForexPair struct {
	Pair            string   `json:"pair"`
	FromCurrency    string   `json:"from_currency"`
	ToCurrency      string   `json:"to_currency"`
	Rate            float64  `json:"rate"`
	Price           float64  `json:"price"`
	Change          *float64 `json:"change"`
	ChangePercent   *float64 `json:"change_percent"`
	Amount          float64  `json:"amount,omitempty"`
	ConvertedAmount float64  `json:"converted_amount,omitempty"`
	LastUpdated     string   `json:"last_updated"`
	NextUpdate      string   `json:"next_update,omitempty"`
}

// CurrencyRates is a base currency with its conversion table
type CurrencyRates struct {
	Base        string             `json:"base"`
	Rates       map[string]float64 `json:"rates"`
	LastUpdated string             `json:"last_updated"`
	NextUpdate  string             `json:"next_update,omitempty"`
}

// Currency is a supported ISO code with its display name
type Currency struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Candle is one OHLCV bar in chronological series
type Candle struct {
	Date      string  `json:"date"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// SymbolMatch is a symbol search hit
type SymbolMatch struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Region     string  `json:"region"`
	Currency   string  `json:"currency"`
	MatchScore float64 `json:"match_score"`
}

// SummaryItem is a compact row of the market summary widget
type SummaryItem struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

// MarketSummary groups the watchlist with the day's movers
type MarketSummary struct {
	Watchlist   []SummaryItem `json:"watchlist"`
	Gainers     []SummaryItem `json:"gainers"`
	Losers      []SummaryItem `json:"losers"`
	Indices     []SummaryItem `json:"indices"`
	Commodities []SummaryItem `json:"commodities"`
}

// MarketStatus reports whether an exchange is open
type MarketStatus struct {
	Exchange  string `json:"exchange"`
	IsOpen    bool   `json:"isOpen"`
	Session   string `json:"session,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	Timestamp int64  `json:"t"`
}
