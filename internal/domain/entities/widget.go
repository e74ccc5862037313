package entities

import (
	"encoding/json"
	"time"
)

// WidgetType is the rendering mode of a widget
type WidgetType string

const (
	WidgetTable WidgetType = "table"
	WidgetCard  WidgetType = "card"
	WidgetChart WidgetType = "chart"
)

// WidgetStatus is derived from loading, data and error
type WidgetStatus string

const (
	StatusIdle    WidgetStatus = "idle"
	StatusLoading WidgetStatus = "loading"
	StatusReady   WidgetStatus = "ready"
	StatusErrored WidgetStatus = "errored"
)

// WidgetConfig binds a widget to a data source
type WidgetConfig struct {
	DataSource      DataSource `json:"dataSource"`
	DisplayFields   []string   `json:"displayFields,omitempty"`
	RefreshInterval int        `json:"refreshInterval,omitempty"`
	FetchOptions
}

// Widget is a dashboard panel together with its latest fetch outcome
type Widget struct {
	ID          string       `json:"id"`
	Type        WidgetType   `json:"type"`
	Title       string       `json:"title"`
	Config      WidgetConfig `json:"config"`
	Data        any          `json:"data,omitempty"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
	RetryCount  int          `json:"retryCount"`
	LastUpdated *time.Time   `json:"lastUpdated,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	Status      WidgetStatus `json:"status"`
}

// HasData reports whether a fetch has ever succeeded for the widget
func (w *Widget) HasData() bool {
	return w.Data != nil
}

// DeriveStatus computes the state machine position of the widget
func (w *Widget) DeriveStatus() WidgetStatus {
	switch {
	case w.Loading:
		return StatusLoading
	case w.Error != "":
		return StatusErrored
	case w.Data != nil:
		return StatusReady
	default:
		return StatusIdle
	}
}

// Options returns the options used to fetch the widget's data
func (c WidgetConfig) Options() FetchOptions {
	return c.FetchOptions
}

// Settings are the dashboard wide refresh preferences
type Settings struct {
	AutoRefresh           bool          `json:"autoRefresh"`
	GlobalRefreshInterval time.Duration `json:"-"`
	RetryAttempts         int           `json:"retryAttempts"`
}

type settingsJSON struct {
	AutoRefresh           bool  `json:"autoRefresh"`
	GlobalRefreshInterval int64 `json:"globalRefreshInterval"`
	RetryAttempts         int   `json:"retryAttempts"`
}

// MarshalJSON writes the interval in milliseconds
func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(settingsJSON{
		AutoRefresh:           s.AutoRefresh,
		GlobalRefreshInterval: s.GlobalRefreshInterval.Milliseconds(),
		RetryAttempts:         s.RetryAttempts,
	})
}

// UnmarshalJSON reads the interval in milliseconds
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw settingsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.AutoRefresh = raw.AutoRefresh
	s.GlobalRefreshInterval = time.Duration(raw.GlobalRefreshInterval) * time.Millisecond
	s.RetryAttempts = raw.RetryAttempts
	return nil
}
