package widgets

import "finboard-service/internal/domain/entities"

// DefaultWidgets is the starter dashboard used when no layout was saved
func DefaultWidgets() []entities.Widget {
	return []entities.Widget{
		{
			ID:    "widget-1",
			Type:  entities.WidgetTable,
			Title: "Live Stock Quotes",
			Config: entities.WidgetConfig{
				DataSource:      entities.SourceStocks,
				DisplayFields:   []string{"symbol", "c", "d", "dp", "h", "l", "o"},
				RefreshInterval: 30,
				FetchOptions: entities.FetchOptions{
					Symbols: []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA", "AMZN", "META", "NFLX", "AMD", "CRM"},
				},
			},
		},
		{
			ID:    "widget-2",
			Type:  entities.WidgetTable,
			Title: "Company Profiles",
			Config: entities.WidgetConfig{
				DataSource:      entities.SourceStocks,
				DisplayFields:   []string{"ticker", "name", "marketCapitalization", "shareOutstanding", "country", "exchange"},
				RefreshInterval: 300,
				FetchOptions: entities.FetchOptions{
					Symbols:        []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA"},
					IncludeProfile: true,
				},
			},
		},
		{
			ID:    "widget-3",
			Type:  entities.WidgetCard,
			Title: "Market Summary",
			Config: entities.WidgetConfig{
				DataSource:      entities.SourceMarketSummary,
				DisplayFields:   []string{"gainers", "losers", "watchlist"},
				RefreshInterval: 60,
			},
		},
		{
			ID:    "widget-4",
			Type:  entities.WidgetChart,
			Title: "AAPL Price Chart",
			Config: entities.WidgetConfig{
				DataSource:      entities.SourceChartData,
				DisplayFields:   []string{"date", "open", "high", "low", "close", "volume"},
				RefreshInterval: 60,
				FetchOptions: entities.FetchOptions{
					Symbol:    "AAPL",
					Timeframe: "daily",
				},
			},
		},
	}
}
