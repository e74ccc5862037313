package dto

import (
	"fmt"
	"strings"
	"time"

	"finboard-service/internal/application/widgets"
	"finboard-service/internal/domain/entities"
)

// ToWidgetConfig converts the request shape to the domain config
func ToWidgetConfig(req WidgetConfigRequest) entities.WidgetConfig {
	opts := req.FetchOptions
	opts.ForceRefresh = false
	if len(opts.Symbols) > 0 {
		symbols := make([]string, 0, len(opts.Symbols))
		for _, s := range opts.Symbols {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		opts.Symbols = symbols
	}
	return entities.WidgetConfig{
		DataSource:      entities.DataSource(req.DataSource),
		DisplayFields:   append([]string(nil), req.DisplayFields...),
		RefreshInterval: req.RefreshInterval,
		FetchOptions:    opts,
	}
}

// ToWidget converts an add request to a widget the store can accept
func ToWidget(req AddWidgetRequest) entities.Widget {
	return entities.Widget{
		Type:   entities.WidgetType(req.Type),
		Title:  strings.TrimSpace(req.Title),
		Config: ToWidgetConfig(req.Config),
	}
}

// ApplySettings overlays the requested changes on current
func ApplySettings(current entities.Settings, req UpdateSettingsRequest) entities.Settings {
	if req.AutoRefresh != nil {
		current.AutoRefresh = *req.AutoRefresh
	}
	if req.GlobalRefreshInterval != nil {
		current.GlobalRefreshInterval = time.Duration(*req.GlobalRefreshInterval) * time.Millisecond
	}
	return current
}

// ToStreamMessage converts a store event for the websocket stream
func ToStreamMessage(ev widgets.Event, at time.Time) StreamMessage {
	return StreamMessage{
		Type:      string(ev.Type),
		WidgetID:  ev.WidgetID,
		Widget:    ev.Widget,
		Order:     ev.Order,
		Timestamp: at.UTC(),
	}
}

// ToImportResponse describes how many layout sections were imported
func ToImportResponse(n int) ImportResponse {
	return ImportResponse{
		Success:       true,
		ImportedCount: n,
		Message:       fmt.Sprintf("Successfully imported %d configuration sections", n),
	}
}
