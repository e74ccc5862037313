// Package widgets holds the dashboard's widget state
package widgets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finboard-service/internal/domain/entities"
	"finboard-service/internal/domain/interfaces"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"
)

const (
	DefaultMaxRetries = 3
	persistTimeout    = 5 * time.Second
)

var (
	ErrWidgetNotFound       = errors.New("widget not found")
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
	ErrInvalidWidget        = errors.New("invalid widget")
	ErrInvalidOrder         = errors.New("order must list every widget exactly once")
)

// EventType names a store change
type EventType string

const (
	EventAdded     EventType = "widget_added"
	EventUpdated   EventType = "widget_updated"
	EventRemoved   EventType = "widget_removed"
	EventReordered EventType = "widgets_reordered"
	EventHydrated  EventType = "widgets_hydrated"
)

// Event is delivered to subscribers after every change
type Event struct {
	Type     EventType        `json:"type"`
	WidgetID string           `json:"widgetId,omitempty"`
	Widget   *entities.Widget `json:"widget,omitempty"`
	Order    []string         `json:"order,omitempty"`
}

type entry struct {
	widget  entities.Widget
	issued  uint64 // last sequence handed out by BeginLoad
	applied uint64 // last sequence whose outcome was written
}

// Store is a mutex protected, ordered widget collection
type Store struct {
	mu         sync.RWMutex
	persistMu  sync.Mutex // orders snapshot and save across writers
	order      []string
	items      map[string]*entry
	subs       map[int]func(Event)
	nextSub    int
	repo       interfaces.LayoutRepository
	maxRetries int
	now        func() time.Time
	newID      func() string
}

// Option configures a Store
type Option func(*Store)

// WithRepository persists widget configs after each structural change
func WithRepository(repo interfaces.LayoutRepository) Option {
	return func(s *Store) {
		s.repo = repo
	}
}

// WithMaxRetries sets the manual retry budget per error episode
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithClock replaces the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces the uuid based id generator
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		items:      make(map[string]*entry),
		subs:       make(map[int]func(Event)),
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
		newID:      func() string { return "widget-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxRetries returns the manual retry budget
func (s *Store) MaxRetries() int {
	return s.maxRetries
}

// List returns a copy of every widget in display order
func (s *Store) List() []entities.Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Widget, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].widget)
	}
	return out
}

// Get returns a copy of one widget
func (s *Store) Get(id string) (entities.Widget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[id]
	if !ok {
		return entities.Widget{}, false
	}
	return e.widget, true
}

// Add appends w with a fresh id and idle state
func (s *Store) Add(ctx context.Context, w entities.Widget) (entities.Widget, error) {
	if err := validate(w); err != nil {
		return entities.Widget{}, err
	}

	s.mu.Lock()
	w.ID = s.newID()
	w.CreatedAt = s.now()
	resetState(&w)
	s.items[w.ID] = &entry{widget: w}
	s.order = append(s.order, w.ID)
	s.mu.Unlock()

	s.persist(ctx)
	s.publish(Event{Type: EventAdded, WidgetID: w.ID, Widget: &w})
	return w, nil
}

func validate(w entities.Widget) error {
	switch w.Type {
	case entities.WidgetTable, entities.WidgetCard, entities.WidgetChart:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidWidget, w.Type)
	}
	if strings.TrimSpace(w.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidWidget)
	}
	if w.Config.DataSource == "" {
		return fmt.Errorf("%w: data source is required", ErrInvalidWidget)
	}
	return nil
}

func resetState(w *entities.Widget) {
	w.Data = nil
	w.Loading = false
	w.Error = ""
	w.RetryCount = 0
	w.LastUpdated = nil
	w.Status = w.DeriveStatus()
}

// Remove deletes a widget. Outcomes of fetches still in flight for it are
// dropped.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.items[id]; !ok {
		s.mu.Unlock()
		return ErrWidgetNotFound
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.persist(ctx)
	s.publish(Event{Type: EventRemoved, WidgetID: id})
	return nil
}

// UpdateConfig replaces the widget config and clears its data so that the
// next refresh uses the new settings
func (s *Store) UpdateConfig(ctx context.Context, id string, cfg entities.WidgetConfig) (entities.Widget, error) {
	if cfg.DataSource == "" {
		return entities.Widget{}, fmt.Errorf("%w: data source is required", ErrInvalidWidget)
	}

	s.mu.Lock()
	e, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return entities.Widget{}, ErrWidgetNotFound
	}
	e.widget.Config = cfg
	e.widget.Data = nil
	e.widget.LastUpdated = nil
	e.widget.Status = e.widget.DeriveStatus()
	w := e.widget
	s.mu.Unlock()

	s.persist(ctx)
	s.publish(Event{Type: EventUpdated, WidgetID: id, Widget: &w})
	return w, nil
}

// UpdateTitle renames a widget
func (s *Store) UpdateTitle(ctx context.Context, id, title string) (entities.Widget, error) {
	if strings.TrimSpace(title) == "" {
		return entities.Widget{}, fmt.Errorf("%w: title is required", ErrInvalidWidget)
	}

	s.mu.Lock()
	e, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return entities.Widget{}, ErrWidgetNotFound
	}
	e.widget.Title = title
	w := e.widget
	s.mu.Unlock()

	s.persist(ctx)
	s.publish(Event{Type: EventUpdated, WidgetID: id, Widget: &w})
	return w, nil
}

// Reorder sets the display order. ids must be a permutation of the
// current widget ids.
func (s *Store) Reorder(ctx context.Context, ids []string) error {
	s.mu.Lock()
	if len(ids) != len(s.order) {
		s.mu.Unlock()
		return ErrInvalidOrder
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.items[id]; !ok || seen[id] {
			s.mu.Unlock()
			return ErrInvalidOrder
		}
		seen[id] = true
	}
	s.order = append([]string(nil), ids...)
	s.mu.Unlock()

	s.persist(ctx)
	s.publish(Event{Type: EventReordered, Order: append([]string(nil), ids...)})
	return nil
}

// Duplicate copies a widget's title and config under a new id, right
// after the original
func (s *Store) Duplicate(ctx context.Context, id string) (entities.Widget, error) {
	s.mu.Lock()
	e, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return entities.Widget{}, ErrWidgetNotFound
	}
	dup := e.widget
	dup.ID = s.newID()
	dup.Title = e.widget.Title + " (Copy)"
	dup.Config = copyConfig(e.widget.Config)
	dup.CreatedAt = s.now()
	resetState(&dup)

	s.items[dup.ID] = &entry{widget: dup}
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i+1], append([]string{dup.ID}, s.order[i+1:]...)...)
			break
		}
	}
	s.mu.Unlock()

	s.persist(ctx)
	s.publish(Event{Type: EventAdded, WidgetID: dup.ID, Widget: &dup})
	return dup, nil
}

func copyConfig(cfg entities.WidgetConfig) entities.WidgetConfig {
	cfg.DisplayFields = append([]string(nil), cfg.DisplayFields...)
	cfg.Symbols = append([]string(nil), cfg.Symbols...)
	if cfg.Headers != nil {
		headers := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			headers[k] = v
		}
		cfg.Headers = headers
	}
	return cfg
}

// BeginLoad marks the widget as loading and returns the sequence number
// the eventual outcome must carry
func (s *Store) BeginLoad(id string) (uint64, bool) {
	s.mu.Lock()
	e, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return 0, false
	}
	e.issued++
	seq := e.issued
	e.widget.Loading = true
	e.widget.Error = ""
	e.widget.Status = e.widget.DeriveStatus()
	w := e.widget
	s.mu.Unlock()

	s.publish(Event{Type: EventUpdated, WidgetID: id, Widget: &w})
	return seq, true
}

// Complete stores data fetched under seq. It reports false when the widget
// is gone or a newer outcome was already applied.
func (s *Store) Complete(id string, seq uint64, data any) bool {
	return s.apply(id, seq, func(w *entities.Widget) {
		now := s.now()
		w.Data = data
		w.Error = ""
		w.RetryCount = 0
		w.LastUpdated = &now
	})
}

// Fail records a fetch error under seq. Previously fetched data is kept.
func (s *Store) Fail(id string, seq uint64, msg string) bool {
	if msg == "" {
		msg = "Failed to fetch data"
	}
	return s.apply(id, seq, func(w *entities.Widget) {
		w.Error = msg
	})
}

func (s *Store) apply(id string, seq uint64, mutate func(*entities.Widget)) bool {
	s.mu.Lock()
	e, ok := s.items[id]
	if !ok || seq <= e.applied || seq > e.issued {
		s.mu.Unlock()
		if ok {
			logging.Widgets().StaleResultDiscarded(context.Background(), id, seq)
		}
		return false
	}
	e.applied = seq
	mutate(&e.widget)
	// a newer request is still in flight
	e.widget.Loading = seq < e.issued
	e.widget.Status = e.widget.DeriveStatus()
	w := e.widget
	s.mu.Unlock()

	s.publish(Event{Type: EventUpdated, WidgetID: id, Widget: &w})
	return true
}

// ClearError dismisses the widget's error
func (s *Store) ClearError(id string) bool {
	s.mu.Lock()
	e, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	e.widget.Error = ""
	e.widget.Status = e.widget.DeriveStatus()
	w := e.widget
	s.mu.Unlock()

	s.publish(Event{Type: EventUpdated, WidgetID: id, Widget: &w})
	return true
}

// RegisterRetry consumes one manual retry and returns the attempt number
func (s *Store) RegisterRetry(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return 0, ErrWidgetNotFound
	}
	if e.widget.RetryCount >= s.maxRetries {
		return e.widget.RetryCount, ErrRetryBudgetExhausted
	}
	e.widget.RetryCount++
	return e.widget.RetryCount, nil
}

// Subscribe registers fn for every change and returns its cancel func
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Hydrate replaces the whole collection, typically with the persisted
// layout. Runtime state is reset; widgets without an id get one.
func (s *Store) Hydrate(widgets []entities.Widget) {
	s.mu.Lock()
	s.items = make(map[string]*entry, len(widgets))
	s.order = make([]string, 0, len(widgets))
	for _, w := range widgets {
		if w.ID == "" {
			w.ID = s.newID()
		}
		if _, dup := s.items[w.ID]; dup {
			continue
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = s.now()
		}
		resetState(&w)
		s.items[w.ID] = &entry{widget: w}
		s.order = append(s.order, w.ID)
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventHydrated})
}

// Replace hydrates the store with widgets and persists the new layout
func (s *Store) Replace(ctx context.Context, widgets []entities.Widget) []entities.Widget {
	s.Hydrate(widgets)
	s.persist(ctx)
	return s.List()
}

// Load hydrates the store from the repository, falling back to defaults
// when nothing was persisted
func (s *Store) Load(ctx context.Context, defaults []entities.Widget) error {
	if s.repo == nil {
		s.Hydrate(defaults)
		return nil
	}

	widgets, err := s.repo.LoadWidgets(ctx)
	if err != nil {
		s.Hydrate(defaults)
		return fmt.Errorf("failed to load widget layout: %w", err)
	}
	if len(widgets) == 0 {
		widgets = defaults
	}
	s.Hydrate(widgets)

	logging.Widgets().Info(ctx, "Widget layout loaded", logging.Fields{
		"widgets": len(widgets),
	})
	return nil
}

// Counts returns the number of widgets per derived status
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for _, e := range s.items {
		counts[string(e.widget.DeriveStatus())]++
	}
	return counts
}

// persist saves widget configs without their runtime state
func (s *Store) persist(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	widgets := s.List()
	for i := range widgets {
		resetState(&widgets[i])
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.repo.SaveWidgets(ctx, widgets); err != nil {
		logging.Widgets().WarnWithError(ctx, "Failed to persist widget layout", err, logging.Fields{
			"widgets": len(widgets),
		})
	}
}

func (s *Store) publish(ev Event) {
	s.mu.RLock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	metrics.UpdateWidgetStatusCounts(s.Counts())
	for _, fn := range subs {
		fn(ev)
	}
}
