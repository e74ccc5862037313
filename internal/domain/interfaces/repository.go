package interfaces

import (
	"context"
	"time"

	"finboard-service/internal/domain/entities"
)

// Cache is a string key/value store with expiry
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LayoutRepository persists the dashboard layout between restarts
type LayoutRepository interface {
	SaveWidgets(ctx context.Context, widgets []entities.Widget) error
	LoadWidgets(ctx context.Context) ([]entities.Widget, error)
	SaveSettings(ctx context.Context, settings entities.Settings) error
	LoadSettings(ctx context.Context) (*entities.Settings, error)
	Clear(ctx context.Context) error
}
