package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"finboard-service/internal/application/widgets"
	"finboard-service/internal/domain/entities"
)

type mockSettingsRepository struct {
	mock.Mock
}

func (m *mockSettingsRepository) SaveWidgets(ctx context.Context, w []entities.Widget) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockSettingsRepository) LoadWidgets(ctx context.Context) ([]entities.Widget, error) {
	args := m.Called(ctx)
	if w := args.Get(0); w != nil {
		return w.([]entities.Widget), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSettingsRepository) SaveSettings(ctx context.Context, s entities.Settings) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSettingsRepository) LoadSettings(ctx context.Context) (*entities.Settings, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*entities.Settings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSettingsRepository) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixture struct {
	store   *widgets.Store
	fetcher *MockDataFetcher
	timers  *fakeTimers
	orch    *Orchestrator
}

func newFixture(t *testing.T, cfg Config, opts ...OrchestratorOption) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	n := 0
	store := widgets.NewStore(widgets.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("w%d", n)
	}))
	timers := &fakeTimers{}
	fetcher := NewMockDataFetcher(ctrl)

	opts = append([]OrchestratorOption{WithScheduler(NewScheduler(timers.after))}, opts...)
	orch := NewOrchestrator(store, fetcher, cfg, opts...)
	t.Cleanup(func() { _ = orch.Stop(context.Background()) })

	return &fixture{store: store, fetcher: fetcher, timers: timers, orch: orch}
}

func (f *fixture) addWidgets(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		w, err := f.store.Add(context.Background(), entities.Widget{
			Type:  entities.WidgetTable,
			Title: fmt.Sprintf("Widget %d", i+1),
			Config: entities.WidgetConfig{
				DataSource:   entities.SourceStocks,
				FetchOptions: entities.FetchOptions{Symbols: []string{"AAPL"}},
			},
		})
		require.NoError(t, err)
		ids = append(ids, w.ID)
	}
	return ids
}

// seed gives a widget data as if it had loaded once
func (f *fixture) seed(t *testing.T, id string) {
	t.Helper()
	seq, ok := f.store.BeginLoad(id)
	require.True(t, ok)
	require.True(t, f.store.Complete(id, seq, []string{"seed"}))
}

func TestOrchestrator_InitialLoadBatches(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.addWidgets(t, 7)

	scheduled := f.orch.InitialLoad(context.Background())

	assert.Equal(t, 7, scheduled)
	assert.Equal(t, []time.Duration{
		0, time.Second, 2 * time.Second,
		5 * time.Second, 6 * time.Second, 7 * time.Second,
		10 * time.Second,
	}, f.timers.delays())
}

func TestOrchestrator_InitialLoadSkipsLoadedWidgets(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 3)
	f.seed(t, ids[0])
	_, ok := f.store.BeginLoad(ids[1])
	require.True(t, ok)

	assert.Equal(t, 1, f.orch.InitialLoad(context.Background()))
	assert.Equal(t, []time.Duration{0}, f.timers.delays())
}

func TestOrchestrator_InitialLoadAppliesResults(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 2)

	gomock.InOrder(
		f.fetcher.EXPECT().
			FetchData(gomock.Any(), entities.SourceStocks, gomock.Any()).
			Return([]string{"AAPL"}, nil),
		f.fetcher.EXPECT().
			FetchData(gomock.Any(), entities.SourceStocks, gomock.Any()).
			Return(nil, errors.New("upstream down")),
	)

	f.orch.InitialLoad(context.Background())
	f.timers.fireAll()

	ok, _ := f.store.Get(ids[0])
	assert.Equal(t, entities.StatusReady, ok.Status)
	assert.Equal(t, []string{"AAPL"}, ok.Data)

	failed, _ := f.store.Get(ids[1])
	assert.Equal(t, entities.StatusErrored, failed.Status)
	assert.Equal(t, "upstream down", failed.Error)
}

func TestOrchestrator_TickStaggersLoadedWidgets(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 4)
	f.seed(t, ids[0])
	f.seed(t, ids[2])
	f.seed(t, ids[3])

	f.orch.tick()

	assert.Equal(t, []time.Duration{0, 200 * time.Millisecond, 400 * time.Millisecond}, f.timers.delays())

	f.fetcher.EXPECT().
		FetchData(gomock.Any(), entities.SourceStocks, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ entities.DataSource, opts entities.FetchOptions) (any, error) {
			assert.False(t, opts.ForceRefresh)
			return []string{"fresh"}, nil
		}).
		Times(3)
	f.timers.fireAll()

	for _, id := range []string{ids[0], ids[2], ids[3]} {
		w, _ := f.store.Get(id)
		assert.Equal(t, []string{"fresh"}, w.Data)
	}
}

func TestOrchestrator_TickDisabled(t *testing.T) {
	cfg := DefaultConfig()
	f := newFixture(t, cfg)
	ids := f.addWidgets(t, 1)
	f.seed(t, ids[0])

	f.orch.SetAutoRefresh(context.Background(), false)
	f.orch.tick()

	assert.Empty(t, f.timers.all())
}

func TestOrchestrator_RefreshForcesFetch(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 1)
	f.orch.InitialLoad(context.Background())

	f.fetcher.EXPECT().
		FetchData(gomock.Any(), entities.SourceStocks, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ entities.DataSource, opts entities.FetchOptions) (any, error) {
			assert.True(t, opts.ForceRefresh)
			assert.Equal(t, []string{"AAPL"}, opts.Symbols)
			return []string{"AAPL"}, nil
		})

	require.NoError(t, f.orch.Refresh(context.Background(), ids[0]))

	// the scheduled initial load is superseded
	assert.Equal(t, 0, f.orch.scheduler.Pending())
	w, _ := f.store.Get(ids[0])
	assert.Equal(t, entities.StatusReady, w.Status)
}

func TestOrchestrator_RefreshUnknownWidget(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	err := f.orch.Refresh(context.Background(), "missing")
	assert.ErrorIs(t, err, widgets.ErrWidgetNotFound)
}

func TestOrchestrator_RetryBudget(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 1)
	boom := errors.New("rate limited")

	f.fetcher.EXPECT().
		FetchData(gomock.Any(), entities.SourceStocks, gomock.Any()).
		Return(nil, boom).
		Times(3)

	for i := 0; i < 3; i++ {
		err := f.orch.Retry(context.Background(), ids[0])
		assert.ErrorIs(t, err, boom)
	}

	err := f.orch.Retry(context.Background(), ids[0])
	assert.ErrorIs(t, err, widgets.ErrRetryBudgetExhausted)

	w, _ := f.store.Get(ids[0])
	assert.Equal(t, 3, w.RetryCount)
	assert.Equal(t, entities.StatusErrored, w.Status)
}

func TestOrchestrator_RetrySuccessResetsCount(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 1)

	gomock.InOrder(
		f.fetcher.EXPECT().FetchData(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")),
		f.fetcher.EXPECT().FetchData(gomock.Any(), gomock.Any(), gomock.Any()).Return([]string{"ok"}, nil),
	)

	require.Error(t, f.orch.Retry(context.Background(), ids[0]))
	require.NoError(t, f.orch.Retry(context.Background(), ids[0]))

	w, _ := f.store.Get(ids[0])
	assert.Equal(t, 0, w.RetryCount)
	assert.Empty(t, w.Error)
}

func TestOrchestrator_ForgetCancelsPendingLoad(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 2)
	f.orch.InitialLoad(context.Background())

	f.orch.Forget(ids[1])
	assert.Equal(t, 1, f.orch.scheduler.Pending())

	f.fetcher.EXPECT().FetchData(gomock.Any(), gomock.Any(), gomock.Any()).Return([]string{"x"}, nil).Times(1)
	f.timers.fireAll()
}

func TestOrchestrator_MaxConcurrentLoads(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 2
	f := newFixture(t, cfg)
	ids := f.addWidgets(t, 4)

	var inflight, peak atomic.Int32
	release := make(chan struct{})
	f.fetcher.EXPECT().
		FetchData(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, entities.DataSource, entities.FetchOptions) (any, error) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			inflight.Add(-1)
			return []string{"x"}, nil
		}).
		Times(4)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = f.orch.Refresh(context.Background(), id)
		}(id)
	}

	assert.Eventually(t, func() bool { return inflight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), peak.Load())
}

func TestOrchestrator_StopDropsPendingLoads(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.addWidgets(t, 3)
	require.NoError(t, f.orch.Start())

	f.orch.InitialLoad(context.Background())
	require.NoError(t, f.orch.Stop(context.Background()))

	assert.Equal(t, 0, f.orch.scheduler.Pending())
	// expired timers firing after Stop must not fetch
	f.timers.fireAll()
}

func TestOrchestrator_SetInterval(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.orch.Start())

	_, err := f.orch.SetInterval(context.Background(), 500*time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	settings, err := f.orch.SetInterval(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, settings.GlobalRefreshInterval)
	assert.Len(t, f.orch.cron.Entries(), 1)
}

func TestOrchestrator_SettingsPersistence(t *testing.T) {
	repo := &mockSettingsRepository{}
	repo.On("LoadSettings", mock.Anything).Return(&entities.Settings{
		AutoRefresh:           false,
		GlobalRefreshInterval: 45 * time.Second,
	}, nil).Once()
	repo.On("SaveSettings", mock.Anything, mock.MatchedBy(func(s entities.Settings) bool {
		return s.AutoRefresh && s.GlobalRefreshInterval == 45*time.Second
	})).Return(nil).Once()

	f := newFixture(t, DefaultConfig(), WithSettingsRepository(repo))

	require.NoError(t, f.orch.RestoreSettings(context.Background()))
	got := f.orch.Settings()
	assert.False(t, got.AutoRefresh)
	assert.Equal(t, 45*time.Second, got.GlobalRefreshInterval)
	assert.Equal(t, widgets.DefaultMaxRetries, got.RetryAttempts)

	f.orch.SetAutoRefresh(context.Background(), true)
	repo.AssertExpectations(t)
}

func TestOrchestrator_SettingsSaveFailureIgnored(t *testing.T) {
	repo := &mockSettingsRepository{}
	repo.On("SaveSettings", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	f := newFixture(t, DefaultConfig(), WithSettingsRepository(repo))

	settings := f.orch.SetAutoRefresh(context.Background(), false)
	assert.False(t, settings.AutoRefresh)
	assert.False(t, f.orch.Settings().AutoRefresh)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Interval: time.Millisecond, MaxConcurrent: -1, StaggerDelay: -1}.withDefaults()

	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, time.Second, cfg.StaggerDelay)
	assert.Equal(t, 2*time.Minute, cfg.FetchTimeout)
}

func TestOrchestrator_EnqueueSchedulesImmediateLoad(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 1)

	f.orch.Enqueue(ids[0])
	assert.Equal(t, []time.Duration{0}, f.timers.delays())

	f.fetcher.EXPECT().FetchData(gomock.Any(), entities.SourceStocks, gomock.Any()).Return([]string{"x"}, nil)
	f.timers.fire(0)

	w, _ := f.store.Get(ids[0])
	assert.Equal(t, entities.StatusReady, w.Status)
}

func TestOrchestrator_ReloadHydratesAndSchedules(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 2)
	f.orch.Enqueue(ids[0])

	require.NoError(t, f.orch.Reload(context.Background(), widgets.DefaultWidgets()))

	// the pending load for the replaced layout was dropped
	assert.True(t, f.timers.all()[0].stopped)
	assert.Len(t, f.store.List(), 4)
	assert.Equal(t, 4, f.orch.scheduler.Pending())
}

func TestOrchestrator_ApplyLayoutReplacesAndSchedules(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ids := f.addWidgets(t, 2)
	f.orch.Enqueue(ids[0])

	tmpl, err := widgets.TemplateByID("market-overview")
	require.NoError(t, err)
	applied := f.orch.ApplyLayout(context.Background(), tmpl.Instantiate())

	assert.True(t, f.timers.all()[0].stopped)
	require.Len(t, applied, 2)
	assert.Equal(t, "Market Movers", applied[0].Title)
	assert.Equal(t, applied, f.store.List())
	assert.Equal(t, 2, f.orch.scheduler.Pending())
}
