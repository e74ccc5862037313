package dto

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard-service/internal/application/widgets"
	"finboard-service/internal/domain/entities"
)

func TestValidator_AddWidget(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		req     AddWidgetRequest
		wantErr string
	}{
		{
			name: "valid table",
			req: AddWidgetRequest{
				Type:   "table",
				Title:  "Stocks",
				Config: WidgetConfigRequest{DataSource: "stocks", RefreshInterval: 30},
			},
		},
		{
			name:    "missing title",
			req:     AddWidgetRequest{Type: "card", Config: WidgetConfigRequest{DataSource: "crypto"}},
			wantErr: "AddWidgetRequest.Title failed on required",
		},
		{
			name:    "unknown type",
			req:     AddWidgetRequest{Type: "pie", Title: "x", Config: WidgetConfigRequest{DataSource: "crypto"}},
			wantErr: "AddWidgetRequest.Type failed on oneof=table card chart",
		},
		{
			name:    "unknown data source",
			req:     AddWidgetRequest{Type: "card", Title: "x", Config: WidgetConfigRequest{DataSource: "weather"}},
			wantErr: "AddWidgetRequest.Config.DataSource failed on datasource",
		},
		{
			name: "negative refresh interval",
			req: AddWidgetRequest{
				Type:   "card",
				Title:  "x",
				Config: WidgetConfigRequest{DataSource: "crypto", RefreshInterval: -5},
			},
			wantErr: "RefreshInterval failed on gte=0",
		},
		{
			name:    "custom without url",
			req:     AddWidgetRequest{Type: "table", Title: "x", Config: WidgetConfigRequest{DataSource: "custom"}},
			wantErr: "apiUrl must be a valid URL for custom widgets",
		},
		{
			name: "custom with url",
			req: AddWidgetRequest{
				Type:  "table",
				Title: "x",
				Config: WidgetConfigRequest{
					DataSource:   "custom",
					FetchOptions: entities.FetchOptions{APIURL: "https://api.example.com/data"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidator_UpdateAndSettings(t *testing.T) {
	v := NewValidator()
	empty := ""
	tooShort := int64(500)
	ok := int64(60000)

	assert.NoError(t, v.Struct(&UpdateWidgetRequest{}))
	assert.Error(t, v.Struct(&UpdateWidgetRequest{Title: &empty}))
	assert.Error(t, v.Struct(&UpdateWidgetRequest{Config: &WidgetConfigRequest{DataSource: "nope"}}))

	assert.Error(t, v.Struct(&UpdateSettingsRequest{GlobalRefreshInterval: &tooShort}))
	assert.NoError(t, v.Struct(&UpdateSettingsRequest{GlobalRefreshInterval: &ok}))

	assert.Error(t, v.Struct(&ReorderWidgetsRequest{}))
	assert.Error(t, v.Struct(&ReorderWidgetsRequest{Order: []string{"a", ""}}))
	assert.NoError(t, v.Struct(&ReorderWidgetsRequest{Order: []string{"a", "b"}}))

	assert.Error(t, v.Struct(&TestConnectionRequest{URL: "not a url"}))
	assert.NoError(t, v.Struct(&TestConnectionRequest{URL: "https://finnhub.io/api/v1/quote?symbol=AAPL"}))
	assert.Error(t, v.Struct(&ValidateResponseRequest{URL: "https://x.io"}))
}

func TestFetchOptionsFromQuery(t *testing.T) {
	q := url.Values{
		"symbols":        {" aapl, msft ,,"},
		"limit":          {"5"},
		"days":           {"7"},
		"includeProfile": {"true"},
		"forceRefresh":   {"1"},
		"pair":           {"EUR/USD"},
		"timeframe":      {"weekly"},
		"vs":             {"eur"},
	}

	opts, err := FetchOptionsFromQuery(q)
	require.NoError(t, err)
	assert.Equal(t, entities.FetchOptions{
		Symbols:        []string{"AAPL", "MSFT"},
		Pair:           "EUR/USD",
		Limit:          5,
		Timeframe:      "weekly",
		Days:           7,
		VsCurrency:     "eur",
		IncludeProfile: true,
		ForceRefresh:   true,
	}, opts)
}

func TestFetchOptionsFromQuery_Invalid(t *testing.T) {
	for _, q := range []url.Values{
		{"limit": {"ten"}},
		{"days": {"-1"}},
		{"includeProfile": {"maybe"}},
	} {
		_, err := FetchOptionsFromQuery(q)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	}
}

func TestToWidget(t *testing.T) {
	w := ToWidget(AddWidgetRequest{
		Type:  "table",
		Title: "  Watchlist ",
		Config: WidgetConfigRequest{
			DataSource:    "stocks",
			DisplayFields: []string{"symbol", "c"},
			FetchOptions:  entities.FetchOptions{Symbols: []string{"aapl", " "}, ForceRefresh: true},
		},
	})

	assert.Equal(t, entities.WidgetTable, w.Type)
	assert.Equal(t, "Watchlist", w.Title)
	assert.Equal(t, entities.SourceStocks, w.Config.DataSource)
	assert.Equal(t, []string{"AAPL"}, w.Config.Symbols)
	assert.False(t, w.Config.ForceRefresh)
}

func TestApplySettings(t *testing.T) {
	current := entities.Settings{AutoRefresh: true, GlobalRefreshInterval: 30 * time.Second, RetryAttempts: 3}
	off := false
	ms := int64(90000)

	assert.Equal(t, current, ApplySettings(current, UpdateSettingsRequest{}))

	got := ApplySettings(current, UpdateSettingsRequest{AutoRefresh: &off, GlobalRefreshInterval: &ms})
	assert.False(t, got.AutoRefresh)
	assert.Equal(t, 90*time.Second, got.GlobalRefreshInterval)
	assert.Equal(t, 3, got.RetryAttempts)
}

func TestToStreamMessage(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))
	msg := ToStreamMessage(widgets.Event{Type: widgets.EventReordered, Order: []string{"b", "a"}}, at)

	assert.Equal(t, "widgets_reordered", msg.Type)
	assert.Equal(t, []string{"b", "a"}, msg.Order)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())
}
