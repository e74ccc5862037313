package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/application/widgets"
	"finboard-service/internal/domain/entities"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/web/respond"
)

// WidgetStore is the widget collection served by the handler
type WidgetStore interface {
	List() []entities.Widget
	Get(id string) (entities.Widget, bool)
	Add(ctx context.Context, w entities.Widget) (entities.Widget, error)
	UpdateTitle(ctx context.Context, id, title string) (entities.Widget, error)
	UpdateConfig(ctx context.Context, id string, cfg entities.WidgetConfig) (entities.Widget, error)
	Remove(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) error
	Duplicate(ctx context.Context, id string) (entities.Widget, error)
	Counts() map[string]int
}

// WidgetRefresher schedules and runs widget loads
type WidgetRefresher interface {
	Refresh(ctx context.Context, id string) error
	Retry(ctx context.Context, id string) error
	Enqueue(id string)
	Forget(id string)
}

// WidgetHandler manages the dashboard widgets
type WidgetHandler struct {
	store     WidgetStore
	refresher WidgetRefresher
	validator *dto.Validator
}

// NewWidgetHandler creates a widget handler
func NewWidgetHandler(store WidgetStore, refresher WidgetRefresher, validator *dto.Validator) *WidgetHandler {
	return &WidgetHandler{
		store:     store,
		refresher: refresher,
		validator: validator,
	}
}

// List handles GET /api/v1/widgets
func (h *WidgetHandler) List(w http.ResponseWriter, r *http.Request) {
	respond.JSON(r.Context(), w, http.StatusOK, dto.WidgetListResponse{
		Widgets: h.store.List(),
		Counts:  h.store.Counts(),
	})
}

// Get handles GET /api/v1/widgets/{id}
func (h *WidgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	widget, ok := h.store.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(r.Context(), w, widgets.ErrWidgetNotFound)
		return
	}
	respond.JSON(r.Context(), w, http.StatusOK, widget)
}

// Add handles POST /api/v1/widgets. The first load is scheduled right away
// and its outcome arrives on the stream.
func (h *WidgetHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.AddWidgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		writeError(ctx, w, err)
		return
	}

	widget, err := h.store.Add(ctx, dto.ToWidget(req))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.refresher.Enqueue(widget.ID)

	logging.Widgets().Info(ctx, "Widget added", logging.Fields{
		logging.FieldWidgetID:   widget.ID,
		logging.FieldDataSource: string(widget.Config.DataSource),
	})
	respond.JSON(ctx, w, http.StatusCreated, widget)
}

// Update handles PUT /api/v1/widgets/{id}. A config change triggers a reload.
func (h *WidgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req dto.UpdateWidgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		writeError(ctx, w, err)
		return
	}

	widget, ok := h.store.Get(id)
	if !ok {
		writeError(ctx, w, widgets.ErrWidgetNotFound)
		return
	}

	var err error
	if req.Title != nil {
		if widget, err = h.store.UpdateTitle(ctx, id, *req.Title); err != nil {
			writeError(ctx, w, err)
			return
		}
	}
	if req.Config != nil {
		if widget, err = h.store.UpdateConfig(ctx, id, dto.ToWidgetConfig(*req.Config)); err != nil {
			writeError(ctx, w, err)
			return
		}
		h.refresher.Enqueue(id)
	}

	respond.JSON(ctx, w, http.StatusOK, widget)
}

// Delete handles DELETE /api/v1/widgets/{id}
func (h *WidgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := h.store.Remove(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	h.refresher.Forget(id)

	logging.Widgets().Info(ctx, "Widget removed", logging.Fields{
		logging.FieldWidgetID: id,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /api/v1/widgets/{id}/refresh
func (h *WidgetHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.reload(w, r, h.refresher.Refresh)
}

// Retry handles POST /api/v1/widgets/{id}/retry
func (h *WidgetHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.reload(w, r, h.refresher.Retry)
}

// reload runs a synchronous load and answers with the updated widget
func (h *WidgetHandler) reload(w http.ResponseWriter, r *http.Request, run func(context.Context, string) error) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := run(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}

	widget, ok := h.store.Get(id)
	if !ok {
		writeError(ctx, w, widgets.ErrWidgetNotFound)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, widget)
}

// Duplicate handles POST /api/v1/widgets/{id}/duplicate
func (h *WidgetHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	widget, err := h.store.Duplicate(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.refresher.Enqueue(widget.ID)
	respond.JSON(ctx, w, http.StatusCreated, widget)
}

// Reorder handles PUT /api/v1/widgets/order
func (h *WidgetHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ReorderWidgetsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.store.Reorder(ctx, req.Order); err != nil {
		writeError(ctx, w, err)
		return
	}

	respond.JSON(ctx, w, http.StatusOK, dto.WidgetListResponse{
		Widgets: h.store.List(),
		Counts:  h.store.Counts(),
	})
}
