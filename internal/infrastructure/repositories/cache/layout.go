package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finboard-service/internal/domain/entities"
	"finboard-service/internal/domain/interfaces"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"
)

const (
	// SnapshotVersion is written into every envelope
	SnapshotVersion = "1.0"

	DefaultKeyPrefix = "finboard_"
	DefaultMaxAge    = 30 * 24 * time.Hour

	widgetsKey  = "widgets"
	settingsKey = "settings"
)

// envelope wraps every stored value with the time it was written (unix ms)
type envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Version   string          `json:"version"`
}

// Export is a portable copy of the saved dashboard
type Export struct {
	Widgets  []entities.Widget  `json:"widgets"`
	Settings *entities.Settings `json:"settings,omitempty"`
	Metadata ExportMetadata     `json:"metadata"`
}

// ExportMetadata describes an exported layout
type ExportMetadata struct {
	ExportDate time.Time `json:"exportDate"`
	Version    string    `json:"version"`
	AppName    string    `json:"appName"`
}

// LayoutStore implements interfaces.LayoutRepository on any interfaces.Cache.
// Entries older than maxAge read as absent and are removed.
type LayoutStore struct {
	backend interfaces.Cache
	prefix  string
	maxAge  time.Duration
	now     func() time.Time
}

var _ interfaces.LayoutRepository = (*LayoutStore)(nil)

// LayoutOption configures a LayoutStore
type LayoutOption func(*LayoutStore)

// WithKeyPrefix overrides the "finboard_" key prefix
func WithKeyPrefix(prefix string) LayoutOption {
	return func(s *LayoutStore) {
		s.prefix = prefix
	}
}

// WithMaxAge overrides the 30 day retention
func WithMaxAge(maxAge time.Duration) LayoutOption {
	return func(s *LayoutStore) {
		if maxAge > 0 {
			s.maxAge = maxAge
		}
	}
}

// WithLayoutClock injects the time source
func WithLayoutClock(now func() time.Time) LayoutOption {
	return func(s *LayoutStore) {
		s.now = now
	}
}

// NewLayoutStore creates a layout repository on backend
func NewLayoutStore(backend interfaces.Cache, opts ...LayoutOption) *LayoutStore {
	s := &LayoutStore{
		backend: backend,
		prefix:  DefaultKeyPrefix,
		maxAge:  DefaultMaxAge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LayoutStore) key(name string) string {
	return s.prefix + name
}

// SaveWidgets stores widget configs; callers strip runtime data first
func (s *LayoutStore) SaveWidgets(ctx context.Context, widgets []entities.Widget) error {
	if widgets == nil {
		widgets = []entities.Widget{}
	}
	err := s.save(ctx, widgetsKey, widgets)
	metrics.RecordLayoutOperation("save_widgets", err)
	return err
}

// LoadWidgets returns nil when nothing was saved or the snapshot expired
func (s *LayoutStore) LoadWidgets(ctx context.Context) ([]entities.Widget, error) {
	var widgets []entities.Widget
	found, err := s.load(ctx, widgetsKey, &widgets)
	metrics.RecordLayoutOperation("load_widgets", err)
	if err != nil || !found {
		return nil, err
	}
	if widgets == nil {
		widgets = []entities.Widget{}
	}
	return widgets, nil
}

// SaveSettings stores the refresh preferences with the interval in ms
func (s *LayoutStore) SaveSettings(ctx context.Context, settings entities.Settings) error {
	err := s.save(ctx, settingsKey, settings)
	metrics.RecordLayoutOperation("save_settings", err)
	return err
}

// LoadSettings returns nil when nothing was saved or the snapshot expired
func (s *LayoutStore) LoadSettings(ctx context.Context) (*entities.Settings, error) {
	var settings entities.Settings
	found, err := s.load(ctx, settingsKey, &settings)
	metrics.RecordLayoutOperation("load_settings", err)
	if err != nil || !found {
		return nil, err
	}
	return &settings, nil
}

// Clear removes every saved key
func (s *LayoutStore) Clear(ctx context.Context) error {
	var errs []error
	for _, name := range []string{widgetsKey, settingsKey} {
		if err := s.backend.Delete(ctx, s.key(name)); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", s.key(name), err))
		}
	}
	err := errors.Join(errs...)
	metrics.RecordLayoutOperation("clear", err)
	return err
}

// Export returns the saved widgets and settings
func (s *LayoutStore) Export(ctx context.Context) (*Export, error) {
	widgets, err := s.LoadWidgets(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if widgets == nil {
		widgets = []entities.Widget{}
	}
	return &Export{
		Widgets:  widgets,
		Settings: settings,
		Metadata: ExportMetadata{
			ExportDate: s.now().UTC(),
			Version:    SnapshotVersion,
			AppName:    "FinBoard",
		},
	}, nil
}

// Import saves the sections present in exp and returns how many were written
func (s *LayoutStore) Import(ctx context.Context, exp Export) (int, error) {
	imported := 0
	if exp.Widgets != nil {
		if err := s.SaveWidgets(ctx, exp.Widgets); err != nil {
			return imported, err
		}
		imported++
	}
	if exp.Settings != nil {
		if err := s.SaveSettings(ctx, *exp.Settings); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (s *LayoutStore) save(ctx context.Context, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	raw, err := json.Marshal(envelope{
		Data:      data,
		Timestamp: s.now().UnixMilli(),
		Version:   SnapshotVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", name, err)
	}
	if err := s.backend.Set(ctx, s.key(name), string(raw), s.maxAge); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

// load decodes the named entry into dst. Missing, expired and corrupt
// entries report found=false; corrupt and expired ones are removed.
func (s *LayoutStore) load(ctx context.Context, name string, dst any) (bool, error) {
	key := s.key(name)
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrKeyExpired) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", name, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		s.discard(ctx, key, err)
		return false, nil
	}
	if env.Timestamp > 0 && s.now().Sub(time.UnixMilli(env.Timestamp)) > s.maxAge {
		s.discard(ctx, key, ErrSnapshotExpired)
		return false, nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		s.discard(ctx, key, err)
		return false, nil
	}
	return true, nil
}

func (s *LayoutStore) discard(ctx context.Context, key string, reason error) {
	logging.Cache().CacheError(ctx, "load", key, reason)
	if err := s.backend.Delete(ctx, key); err != nil {
		logging.Cache().CacheError(ctx, "delete", key, err)
	}
}
