package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"finboard-service/internal/domain/entities"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func sampleWidgets() []entities.Widget {
	return []entities.Widget{
		{
			ID:    "widget-1",
			Type:  entities.WidgetTable,
			Title: "Live Stock Quotes",
			Config: entities.WidgetConfig{
				DataSource:      entities.SourceStocks,
				DisplayFields:   []string{"symbol", "c"},
				RefreshInterval: 30,
				FetchOptions:    entities.FetchOptions{Symbols: []string{"AAPL", "MSFT"}},
			},
			Status:    entities.StatusIdle,
			CreatedAt: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		},
	}
}

func newLayoutFixture() (*LayoutStore, *MemoryCache, *testClock) {
	clock := newTestClock()
	backend := NewMemoryCache(WithMemoryClock(clock.Now))
	return NewLayoutStore(backend, WithLayoutClock(clock.Now)), backend, clock
}

func TestLayoutStore_WidgetsRoundTrip(t *testing.T) {
	store, _, _ := newLayoutFixture()
	ctx := context.Background()

	require.NoError(t, store.SaveWidgets(ctx, sampleWidgets()))

	got, err := store.LoadWidgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleWidgets(), got)
}

func TestLayoutStore_EnvelopeFormat(t *testing.T) {
	store, backend, clock := newLayoutFixture()
	ctx := context.Background()

	require.NoError(t, store.SaveSettings(ctx, entities.Settings{
		AutoRefresh:           true,
		GlobalRefreshInterval: 30 * time.Second,
		RetryAttempts:         3,
	}))

	raw, err := backend.Get(ctx, "finboard_settings")
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "1.0", env["version"])
	assert.Equal(t, float64(clock.Now().UnixMilli()), env["timestamp"])
	assert.Equal(t, map[string]any{
		"autoRefresh":           true,
		"globalRefreshInterval": float64(30000),
		"retryAttempts":         float64(3),
	}, env["data"])
}

func TestLayoutStore_SettingsRoundTrip(t *testing.T) {
	store, _, _ := newLayoutFixture()
	ctx := context.Background()
	want := entities.Settings{AutoRefresh: false, GlobalRefreshInterval: 45 * time.Second, RetryAttempts: 3}

	require.NoError(t, store.SaveSettings(ctx, want))

	got, err := store.LoadSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestLayoutStore_NothingSaved(t *testing.T) {
	store, _, _ := newLayoutFixture()
	ctx := context.Background()

	widgets, err := store.LoadWidgets(ctx)
	require.NoError(t, err)
	assert.Nil(t, widgets)

	settings, err := store.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestLayoutStore_EmptyLayoutIsNotNil(t *testing.T) {
	store, _, _ := newLayoutFixture()
	ctx := context.Background()

	require.NoError(t, store.SaveWidgets(ctx, nil))

	got, err := store.LoadWidgets(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLayoutStore_MaxAge(t *testing.T) {
	clock := newTestClock()
	// a backend without TTL support still honours the envelope timestamp
	backend := NewMemoryCache()
	store := NewLayoutStore(backend, WithLayoutClock(clock.Now), WithMaxAge(24*time.Hour))
	ctx := context.Background()

	require.NoError(t, store.SaveWidgets(ctx, sampleWidgets()))

	clock.Advance(23 * time.Hour)
	got, err := store.LoadWidgets(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	clock.Advance(2 * time.Hour)
	got, err = store.LoadWidgets(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = backend.Get(ctx, "finboard_widgets")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestLayoutStore_CorruptEntryDiscarded(t *testing.T) {
	store, backend, _ := newLayoutFixture()
	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, "finboard_widgets", "{not json", 0))

	got, err := store.LoadWidgets(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = backend.Get(ctx, "finboard_widgets")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestLayoutStore_BackendErrors(t *testing.T) {
	backend := &MockCache{}
	backend.On("Get", mock.Anything, "app_widgets").Return("", errors.New("redis down"))
	backend.On("Set", mock.Anything, "app_widgets", mock.AnythingOfType("string"), DefaultMaxAge).Return(errors.New("redis down"))
	store := NewLayoutStore(backend, WithKeyPrefix("app_"))
	ctx := context.Background()

	_, err := store.LoadWidgets(ctx)
	assert.ErrorContains(t, err, "failed to load widgets: redis down")

	err = store.SaveWidgets(ctx, sampleWidgets())
	assert.ErrorContains(t, err, "failed to save widgets: redis down")
	backend.AssertExpectations(t)
}

func TestLayoutStore_Clear(t *testing.T) {
	store, _, _ := newLayoutFixture()
	ctx := context.Background()
	require.NoError(t, store.SaveWidgets(ctx, sampleWidgets()))
	require.NoError(t, store.SaveSettings(ctx, entities.Settings{AutoRefresh: true}))

	require.NoError(t, store.Clear(ctx))

	widgets, _ := store.LoadWidgets(ctx)
	settings, _ := store.LoadSettings(ctx)
	assert.Nil(t, widgets)
	assert.Nil(t, settings)
}

func TestLayoutStore_ClearJoinsErrors(t *testing.T) {
	backend := &MockCache{}
	backend.On("Delete", mock.Anything, "finboard_widgets").Return(errors.New("boom"))
	backend.On("Delete", mock.Anything, "finboard_settings").Return(nil)
	store := NewLayoutStore(backend)

	err := store.Clear(context.Background())
	assert.ErrorContains(t, err, "failed to delete finboard_widgets: boom")
}

func TestLayoutStore_ExportImport(t *testing.T) {
	src, _, _ := newLayoutFixture()
	ctx := context.Background()
	settings := entities.Settings{AutoRefresh: true, GlobalRefreshInterval: time.Minute, RetryAttempts: 3}
	require.NoError(t, src.SaveWidgets(ctx, sampleWidgets()))
	require.NoError(t, src.SaveSettings(ctx, settings))

	exp, err := src.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FinBoard", exp.Metadata.AppName)
	assert.Equal(t, SnapshotVersion, exp.Metadata.Version)

	// survives the wire
	raw, err := json.Marshal(exp)
	require.NoError(t, err)
	var decoded Export
	require.NoError(t, json.Unmarshal(raw, &decoded))

	dst, _, _ := newLayoutFixture()
	n, err := dst.Import(ctx, decoded)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	gotWidgets, _ := dst.LoadWidgets(ctx)
	gotSettings, _ := dst.LoadSettings(ctx)
	assert.Equal(t, sampleWidgets(), gotWidgets)
	assert.Equal(t, settings, *gotSettings)
}

func TestLayoutStore_ImportPartial(t *testing.T) {
	store, _, _ := newLayoutFixture()

	n, err := store.Import(context.Background(), Export{Widgets: sampleWidgets()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
