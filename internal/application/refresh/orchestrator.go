package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"finboard-service/internal/application/widgets"
	"finboard-service/internal/domain/entities"
	"finboard-service/internal/domain/interfaces"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"
)

// Refresh triggers, used as metric labels
const (
	TriggerInitial = "initial"
	TriggerAuto    = "auto"
	TriggerManual  = "manual"
	TriggerRetry   = "retry"
)

var ErrInvalidInterval = errors.New("refresh interval must be at least one second")

// Config tunes load batching and the auto-refresh tick
type Config struct {
	AutoRefresh        bool
	Interval           time.Duration
	MaxConcurrent      int
	StaggerDelay       time.Duration
	BatchPause         time.Duration
	AutoRefreshStagger time.Duration
	FetchTimeout       time.Duration
}

// DefaultConfig mirrors the dashboard's stock refresh settings
func DefaultConfig() Config {
	return Config{
		AutoRefresh:        true,
		Interval:           30 * time.Second,
		MaxConcurrent:      3,
		StaggerDelay:       time.Second,
		BatchPause:         2 * time.Second,
		AutoRefreshStagger: 200 * time.Millisecond,
		FetchTimeout:       2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval < time.Second {
		c.Interval = d.Interval
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.StaggerDelay < 0 {
		c.StaggerDelay = d.StaggerDelay
	}
	if c.BatchPause < 0 {
		c.BatchPause = d.BatchPause
	}
	if c.AutoRefreshStagger < 0 {
		c.AutoRefreshStagger = d.AutoRefreshStagger
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	return c
}

// Orchestrator decides when each widget is loaded and writes the outcome
// back to the store
type Orchestrator struct {
	store     *widgets.Store
	fetcher   interfaces.DataFetcher
	scheduler *Scheduler
	sem       *semaphore.Weighted
	cfg       Config
	repo      interfaces.LayoutRepository

	mu       sync.Mutex
	cron     *cron.Cron
	entryID  cron.EntryID
	started  bool
	stopped  bool
	settings entities.Settings

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithScheduler replaces the timer backed scheduler
func WithScheduler(s *Scheduler) OrchestratorOption {
	return func(o *Orchestrator) {
		o.scheduler = s
	}
}

// WithSettingsRepository persists refresh settings
func WithSettingsRepository(repo interfaces.LayoutRepository) OrchestratorOption {
	return func(o *Orchestrator) {
		o.repo = repo
	}
}

// NewOrchestrator wires the store to the fetcher
func NewOrchestrator(store *widgets.Store, fetcher interfaces.DataFetcher, cfg Config, opts ...OrchestratorOption) *Orchestrator {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		store:   store,
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		cfg:     cfg,
		cron:    cron.New(),
		settings: entities.Settings{
			AutoRefresh:           cfg.AutoRefresh,
			GlobalRefreshInterval: cfg.Interval,
			RetryAttempts:         store.MaxRetries(),
		},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.scheduler == nil {
		o.scheduler = NewScheduler(nil)
	}
	return o
}

// InitialLoad schedules every widget that has neither data nor a load in
// flight. Widgets are loaded MaxConcurrent at a time, StaggerDelay apart
// inside a batch, and each batch waits for the previous one plus BatchPause.
func (o *Orchestrator) InitialLoad(ctx context.Context) int {
	var pending []entities.Widget
	for _, w := range o.store.List() {
		if !w.HasData() && !w.Loading {
			pending = append(pending, w)
		}
	}

	batchSize := o.cfg.MaxConcurrent
	batchSpan := time.Duration(batchSize)*o.cfg.StaggerDelay + o.cfg.BatchPause
	for i, w := range pending {
		batch, slot := i/batchSize, i%batchSize
		delay := time.Duration(batch)*batchSpan + time.Duration(slot)*o.cfg.StaggerDelay
		o.schedule(w.ID, delay, TriggerInitial)
	}

	logging.Widgets().Info(ctx, "Initial widget load scheduled", logging.Fields{
		"widgets":        len(pending),
		"max_concurrent": batchSize,
	})
	return len(pending)
}

// Start registers the auto-refresh tick on the cron scheduler
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return nil
	}
	if err := o.registerTickLocked(o.settings.GlobalRefreshInterval); err != nil {
		return err
	}
	o.cron.Start()
	o.started = true

	logging.Widgets().Info(o.ctx, "Auto refresh started", logging.Fields{
		"interval_ms":  o.settings.GlobalRefreshInterval.Milliseconds(),
		"auto_refresh": o.settings.AutoRefresh,
	})
	return nil
}

func (o *Orchestrator) registerTickLocked(interval time.Duration) error {
	if o.entryID != 0 {
		o.cron.Remove(o.entryID)
		o.entryID = 0
	}
	id, err := o.cron.AddFunc(fmt.Sprintf("@every %s", interval), o.tick)
	if err != nil {
		return fmt.Errorf("failed to register refresh tick: %w", err)
	}
	o.entryID = id
	return nil
}

// tick staggers a reload of every widget that already shows data
func (o *Orchestrator) tick() {
	o.mu.Lock()
	enabled := o.settings.AutoRefresh
	o.mu.Unlock()
	if !enabled {
		return
	}

	n := 0
	for _, w := range o.store.List() {
		if !w.HasData() || w.Loading {
			continue
		}
		o.schedule(w.ID, time.Duration(n)*o.cfg.AutoRefreshStagger, TriggerAuto)
		n++
	}
	logging.Widgets().Debug(o.ctx, "Auto refresh tick", logging.Fields{"widgets": n})
}

func (o *Orchestrator) schedule(id string, delay time.Duration, trigger string) {
	o.scheduler.Schedule(id, delay, func() {
		o.mu.Lock()
		if o.stopped {
			o.mu.Unlock()
			return
		}
		o.wg.Add(1)
		o.mu.Unlock()

		defer o.wg.Done()
		_ = o.load(o.ctx, id, trigger, false)
	})
}

// Refresh reloads one widget now, bypassing the DataService de-dup window
func (o *Orchestrator) Refresh(ctx context.Context, id string) error {
	if _, ok := o.store.Get(id); !ok {
		return widgets.ErrWidgetNotFound
	}
	o.scheduler.Cancel(id)
	return o.load(ctx, id, TriggerManual, true)
}

// Retry reloads an errored widget if its manual retry budget allows it
func (o *Orchestrator) Retry(ctx context.Context, id string) error {
	attempt, err := o.store.RegisterRetry(id)
	if err != nil {
		return err
	}
	logging.Widgets().Info(ctx, "Manual retry", logging.Fields{
		logging.FieldWidgetID: id,
		logging.FieldAttempt:  attempt,
	})
	o.scheduler.Cancel(id)
	return o.load(ctx, id, TriggerRetry, true)
}

// Enqueue schedules an immediate load, used after a widget is added or its
// config changes
func (o *Orchestrator) Enqueue(id string) {
	o.schedule(id, 0, TriggerManual)
}

// Reload drops pending loads, hydrates the store from its repository and
// schedules the initial load again
func (o *Orchestrator) Reload(ctx context.Context, defaults []entities.Widget) error {
	o.scheduler.CancelAll()

	var errs []error
	if err := o.store.Load(ctx, defaults); err != nil {
		errs = append(errs, err)
	}
	if err := o.RestoreSettings(ctx); err != nil {
		errs = append(errs, err)
	}
	o.InitialLoad(ctx)
	return errors.Join(errs...)
}

// ApplyLayout drops pending loads, swaps in widgets as the saved layout and
// schedules their initial load
func (o *Orchestrator) ApplyLayout(ctx context.Context, ws []entities.Widget) []entities.Widget {
	o.scheduler.CancelAll()
	applied := o.store.Replace(ctx, ws)
	o.InitialLoad(ctx)
	return applied
}

// Forget cancels any pending load for a removed widget
func (o *Orchestrator) Forget(id string) {
	o.scheduler.Cancel(id)
}

// load fetches the widget's data and applies the outcome. The fetch error
// is recorded on the widget and also returned.
func (o *Orchestrator) load(ctx context.Context, id, trigger string, force bool) error {
	ctx = context.WithoutCancel(ctx)
	if err := o.sem.Acquire(o.ctx, 1); err != nil {
		return err
	}
	defer o.sem.Release(1)

	w, ok := o.store.Get(id)
	if !ok {
		return widgets.ErrWidgetNotFound
	}
	seq, ok := o.store.BeginLoad(id)
	if !ok {
		return widgets.ErrWidgetNotFound
	}

	source := string(w.Config.DataSource)
	opts := w.Config.Options()
	opts.ForceRefresh = force

	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancel()
	stop := context.AfterFunc(o.ctx, cancel)
	defer stop()

	logging.Widgets().RefreshStarted(ctx, id, source, seq)
	start := time.Now()
	data, err := o.fetcher.FetchData(fetchCtx, w.Config.DataSource, opts)
	if err != nil {
		if o.store.Fail(id, seq, err.Error()) {
			metrics.RecordWidgetRefresh(trigger, "error")
			logging.Widgets().RefreshFailed(ctx, id, source, seq, err)
		} else {
			metrics.RecordWidgetRefresh(trigger, "stale")
		}
		return err
	}

	if !o.store.Complete(id, seq, data) {
		metrics.RecordWidgetRefresh(trigger, "stale")
		return nil
	}
	metrics.RecordWidgetRefresh(trigger, "success")
	logging.Widgets().RefreshSucceeded(ctx, id, source, seq, time.Since(start))
	return nil
}

// Settings returns the current refresh preferences
func (o *Orchestrator) Settings() entities.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

// SetAutoRefresh toggles the periodic reload
func (o *Orchestrator) SetAutoRefresh(ctx context.Context, enabled bool) entities.Settings {
	o.mu.Lock()
	o.settings.AutoRefresh = enabled
	settings := o.settings
	o.mu.Unlock()

	o.saveSettings(ctx, settings)
	return settings
}

// SetInterval changes the auto-refresh period and re-registers the tick
func (o *Orchestrator) SetInterval(ctx context.Context, interval time.Duration) (entities.Settings, error) {
	if interval < time.Second {
		return o.Settings(), ErrInvalidInterval
	}

	o.mu.Lock()
	if o.started {
		if err := o.registerTickLocked(interval); err != nil {
			o.mu.Unlock()
			return o.Settings(), err
		}
	}
	o.settings.GlobalRefreshInterval = interval
	settings := o.settings
	o.mu.Unlock()

	o.saveSettings(ctx, settings)
	return settings, nil
}

// RestoreSettings applies persisted settings, if any
func (o *Orchestrator) RestoreSettings(ctx context.Context) error {
	if o.repo == nil {
		return nil
	}
	saved, err := o.repo.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load refresh settings: %w", err)
	}
	if saved == nil {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings.AutoRefresh = saved.AutoRefresh
	if saved.GlobalRefreshInterval >= time.Second {
		o.settings.GlobalRefreshInterval = saved.GlobalRefreshInterval
		if o.started {
			return o.registerTickLocked(saved.GlobalRefreshInterval)
		}
	}
	return nil
}

func (o *Orchestrator) saveSettings(ctx context.Context, settings entities.Settings) {
	if o.repo == nil {
		return
	}
	if err := o.repo.SaveSettings(ctx, settings); err != nil {
		logging.Widgets().WarnWithError(ctx, "Failed to persist refresh settings", err, nil)
	}
}

// Stop halts the tick, drops pending loads and waits for running ones
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	wasStarted := o.started
	o.started = false
	o.stopped = true
	o.mu.Unlock()

	if wasStarted {
		// waits for a tick that is already running
		<-o.cron.Stop().Done()
	}
	dropped := o.scheduler.CancelAll()
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Widgets().Info(ctx, "Refresh orchestrator stopped", logging.Fields{"dropped_tasks": dropped})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
