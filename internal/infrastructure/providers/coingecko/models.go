package coingecko

// marketCoin is one row of /coins/markets. CoinGecko sends null for many
// numeric fields, hence the pointers.
type marketCoin struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	Image                    string   `json:"image"`
	CurrentPrice             *float64 `json:"current_price"`
	MarketCap                *float64 `json:"market_cap"`
	MarketCapRank            *int     `json:"market_cap_rank"`
	TotalVolume              *float64 `json:"total_volume"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	PriceChange24h           *float64 `json:"price_change_24h"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	PriceChangePercentage7d  *float64 `json:"price_change_percentage_7d_in_currency"`
	CirculatingSupply        *float64 `json:"circulating_supply"`
	TotalSupply              *float64 `json:"total_supply"`
	MaxSupply                *float64 `json:"max_supply"`
	ATH                      *float64 `json:"ath"`
	ATL                      *float64 `json:"atl"`
	LastUpdated              string   `json:"last_updated"`
}

type coinDetail struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank *int   `json:"market_cap_rank"`
	Image         struct {
		Large string `json:"large"`
	} `json:"image"`
	MarketData struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		High24h                  map[string]float64 `json:"high_24h"`
		Low24h                   map[string]float64 `json:"low_24h"`
		ATH                      map[string]float64 `json:"ath"`
		ATL                      map[string]float64 `json:"atl"`
		PriceChange24h           *float64           `json:"price_change_24h"`
		PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
		PriceChangePercentage7d  *float64           `json:"price_change_percentage_7d"`
		CirculatingSupply        *float64           `json:"circulating_supply"`
		TotalSupply              *float64           `json:"total_supply"`
		MaxSupply                *float64           `json:"max_supply"`
		LastUpdated              string             `json:"last_updated"`
	} `json:"market_data"`
}

// marketChart holds [timestamp_ms, value] pairs
type marketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID            string  `json:"id"`
			Name          string  `json:"name"`
			Symbol        string  `json:"symbol"`
			MarketCapRank int     `json:"market_cap_rank"`
			Thumb         string  `json:"thumb"`
			Large         string  `json:"large"`
			PriceBTC      float64 `json:"price_btc"`
			Score         int     `json:"score"`
		} `json:"item"`
	} `json:"coins"`
}

type errorPayload struct {
	Error  string `json:"error"`
	Status *struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
