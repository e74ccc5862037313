package widgets

import (
	"errors"

	"finboard-service/internal/domain/entities"
)

// templateRefreshInterval is used by template widgets that set none
const templateRefreshInterval = 120

// CategoryAll matches every template
const CategoryAll = "all"

var ErrTemplateNotFound = errors.New("template not found")

// Template is a preset dashboard layout
type Template struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	Category    string            `json:"category"`
	Widgets     []entities.Widget `json:"widgets"`
}

// TemplateCategory is a filter offered next to the template list
type TemplateCategory struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// TemplateCategories lists the filters in display order
func TemplateCategories() []TemplateCategory {
	return []TemplateCategory{
		{ID: CategoryAll, Label: "All Templates", Icon: "📋"},
		{ID: "Trading", Label: "Trading", Icon: "📈"},
		{ID: "Crypto", Label: "Crypto", Icon: "₿"},
		{ID: "Overview", Label: "Overview", Icon: "📊"},
	}
}

func marketSummaryCard() entities.Widget {
	return entities.Widget{
		Type:  entities.WidgetCard,
		Title: "Market Summary",
		Config: entities.WidgetConfig{
			DataSource:      entities.SourceMarketSummary,
			DisplayFields:   []string{"gainers", "losers", "watchlist"},
			RefreshInterval: 180,
		},
	}
}

// Templates returns every preset in display order
func Templates() []Template {
	return []Template{
		{
			ID:          "stock-trader",
			Name:        "Stock Trader",
			Description: "Perfect for active stock trading with live quotes and charts",
			Icon:        "📈",
			Category:    "Trading",
			Widgets: []entities.Widget{
				{
					Type:  entities.WidgetTable,
					Title: "Live Stock Quotes",
					Config: entities.WidgetConfig{
						DataSource:      entities.SourceStocks,
						DisplayFields:   []string{"symbol", "c", "d", "dp", "h", "l", "o"},
						RefreshInterval: 120,
						FetchOptions: entities.FetchOptions{
							Symbols: []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA", "AMZN", "META"},
						},
					},
				},
				{
					Type:  entities.WidgetChart,
					Title: "AAPL Price Chart",
					Config: entities.WidgetConfig{
						DataSource:      entities.SourceChartData,
						DisplayFields:   []string{"date", "open", "high", "low", "close", "volume"},
						RefreshInterval: 180,
						FetchOptions: entities.FetchOptions{
							Symbol:    "AAPL",
							Timeframe: "daily",
						},
					},
				},
				marketSummaryCard(),
			},
		},
		{
			ID:          "crypto-tracker",
			Name:        "Crypto Tracker",
			Description: "Track cryptocurrency prices and market trends",
			Icon:        "₿",
			Category:    "Crypto",
			Widgets: []entities.Widget{
				{
					Type:  entities.WidgetTable,
					Title: "Top Cryptocurrencies",
					Config: entities.WidgetConfig{
						DataSource: entities.SourceCrypto,
						DisplayFields: []string{
							"symbol", "name", "current_price", "price_change_24h",
							"price_change_percentage_24h", "market_cap",
						},
						RefreshInterval: 180,
					},
				},
			},
		},
		{
			ID:          "market-overview",
			Name:        "Market Overview",
			Description: "Get a quick overview of market conditions and trends",
			Icon:        "📊",
			Category:    "Overview",
			Widgets: []entities.Widget{
				{
					Type:  entities.WidgetTable,
					Title: "Market Movers",
					Config: entities.WidgetConfig{
						DataSource:      entities.SourceStocks,
						DisplayFields:   []string{"symbol", "c", "d", "dp"},
						RefreshInterval: 180,
						FetchOptions: entities.FetchOptions{
							Symbols: []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA", "AMZN", "META", "NFLX"},
						},
					},
				},
				marketSummaryCard(),
			},
		},
	}
}

// TemplateByID looks a preset up by id
func TemplateByID(id string) (Template, error) {
	for _, t := range Templates() {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, ErrTemplateNotFound
}

// TemplatesByCategory filters the presets. An empty category or CategoryAll
// returns all of them.
func TemplatesByCategory(category string) []Template {
	all := Templates()
	if category == "" || category == CategoryAll {
		return all
	}
	out := make([]Template, 0, len(all))
	for _, t := range all {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// TemplateSuggestions picks presets that complement the current dashboard
func TemplateSuggestions(existing []entities.Widget) []Template {
	preset := func(id string) Template {
		t, _ := TemplateByID(id)
		return t
	}
	if len(existing) == 0 {
		return []Template{preset("market-overview"), preset("stock-trader")}
	}

	var stocks, crypto bool
	for _, w := range existing {
		switch w.Config.DataSource {
		case entities.SourceStocks:
			stocks = true
		case entities.SourceCrypto:
			crypto = true
		}
	}
	switch {
	case stocks && !crypto:
		return []Template{preset("crypto-tracker")}
	case crypto && !stocks:
		return []Template{preset("stock-trader")}
	default:
		return []Template{preset("market-overview")}
	}
}

// Instantiate returns fresh widgets for the template. Ids are left empty so
// the store assigns them.
func (t Template) Instantiate() []entities.Widget {
	out := make([]entities.Widget, 0, len(t.Widgets))
	for _, w := range t.Widgets {
		w.ID = ""
		w.Config = copyConfig(w.Config)
		if w.Config.RefreshInterval <= 0 {
			w.Config.RefreshInterval = templateRefreshInterval
		}
		if w.Config.DisplayFields == nil {
			w.Config.DisplayFields = []string{}
		}
		resetState(&w)
		out = append(out, w)
	}
	return out
}
