package services

import (
	"strings"
	"time"

	"finboard-service/internal/domain/entities"
)

// NormalizeStocks shapes provider quotes into the canonical stock record.
// Every record carries the short finnhub keys and their long aliases, so
// widgets bound to either naming keep working whichever provider answered.
func NormalizeStocks(quotes []entities.ProviderQuote, includeProfile bool) []entities.StockQuote {
	return normalizeStocksAt(quotes, includeProfile, time.Now())
}

func normalizeStocksAt(quotes []entities.ProviderQuote, includeProfile bool, now time.Time) []entities.StockQuote {
	out := make([]entities.StockQuote, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, normalizeStock(q, includeProfile, now))
	}
	return out
}

func normalizeStock(q entities.ProviderQuote, includeProfile bool, now time.Time) entities.StockQuote {
	symbol := strings.ToUpper(q.Symbol)
	high := orPrice(q.High, q.Price)
	low := orPrice(q.Low, q.Price)
	open := orPrice(q.Open, q.Price)
	prev := orPrice(q.PreviousClose, q.Price)

	s := entities.StockQuote{
		Symbol: symbol,
		C:      q.Price,
		D:      q.Change,
		DP:     q.ChangePercent,
		H:      high,
		L:      low,
		O:      open,
		PC:     prev,
		T:      q.Timestamp,

		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		High:          high,
		Low:           low,
		Open:          open,
		PreviousClose: prev,
		Volume:        q.Volume,
		LastUpdated:   lastUpdated(q, now),
		Source:        q.Source,
	}

	s.Name = symbol
	if q.Profile != nil && q.Profile.Name != "" {
		s.Name = q.Profile.Name
	}
	s.Company = s.Name

	if includeProfile && q.Profile != nil {
		applyProfile(&s, q.Profile)
	}
	return s
}

func applyProfile(s *entities.StockQuote, p *entities.CompanyProfile) {
	s.Ticker = p.Ticker
	if s.Ticker == "" {
		s.Ticker = s.Symbol
	}
	s.Country = p.Country
	s.Currency = p.Currency
	s.Exchange = p.Exchange
	s.Industry = p.Industry
	s.IPO = p.IPO
	s.WebURL = p.WebURL
	s.Phone = p.Phone
	s.Logo = p.Logo

	s.MarketCap = "N/A"
	if p.MarketCapitalization > 0 {
		mc := p.MarketCapitalization
		s.MarketCapitalization = &mc
		// finnhub reports market capitalization in millions
		s.MarketCap = FormatLargeNumber(mc * 1e6)
	}
	if p.ShareOutstanding > 0 {
		so := p.ShareOutstanding
		s.ShareOutstanding = &so
	}
}

func orPrice(v, price float64) float64 {
	if v == 0 {
		return price
	}
	return v
}

func lastUpdated(q entities.ProviderQuote, now time.Time) string {
	if q.Timestamp > 0 {
		return time.Unix(q.Timestamp, 0).UTC().Format(time.RFC3339)
	}
	if q.LatestDay != "" {
		return q.LatestDay
	}
	return now.UTC().Format(time.RFC3339)
}

// toSummaryItems maps crypto assets onto compact summary rows
func toSummaryItems(assets []entities.CryptoAsset) []entities.SummaryItem {
	items := make([]entities.SummaryItem, 0, len(assets))
	for _, a := range assets {
		items = append(items, entities.SummaryItem{
			Symbol:        a.Symbol,
			Name:          a.Name,
			Price:         a.Price,
			ChangePercent: a.ChangePercent24h,
		})
	}
	return items
}
