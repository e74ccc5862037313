package handlers

import (
	"context"
	"fmt"
	"net/http"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/domain/entities"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/repositories/cache"
	"finboard-service/internal/infrastructure/web/respond"
)

// LayoutPorter exports and imports the persisted dashboard layout
type LayoutPorter interface {
	Export(ctx context.Context) (*cache.Export, error)
	Import(ctx context.Context, exp cache.Export) (int, error)
}

// LayoutReloader re-reads the persisted layout into the running dashboard
type LayoutReloader interface {
	Reload(ctx context.Context, defaults []entities.Widget) error
}

// LayoutHandler serves layout export and import
type LayoutHandler struct {
	porter   LayoutPorter
	reloader LayoutReloader
	defaults func() []entities.Widget
}

// NewLayoutHandler creates a layout handler. defaults supplies the widgets
// used when an import leaves the layout empty.
func NewLayoutHandler(porter LayoutPorter, reloader LayoutReloader, defaults func() []entities.Widget) *LayoutHandler {
	return &LayoutHandler{
		porter:   porter,
		reloader: reloader,
		defaults: defaults,
	}
}

// Export handles GET /api/v1/layout/export
func (h *LayoutHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	exp, err := h.porter.Export(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="finboard-layout.json"`)
	respond.JSON(ctx, w, http.StatusOK, exp)
}

// Import handles POST /api/v1/layout/import and reloads the dashboard
func (h *LayoutHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var exp cache.Export
	if err := decodeJSON(r, &exp); err != nil {
		writeError(ctx, w, err)
		return
	}
	if exp.Widgets == nil && exp.Settings == nil {
		writeError(ctx, w, fmt.Errorf("%w: nothing to import", dto.ErrInvalidRequest))
		return
	}

	n, err := h.porter.Import(ctx, exp)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var defaults []entities.Widget
	if h.defaults != nil {
		defaults = h.defaults()
	}
	if err := h.reloader.Reload(ctx, defaults); err != nil {
		logging.WarnWithError(ctx, "Reload after layout import was incomplete", err, nil)
	}

	respond.JSON(ctx, w, http.StatusOK, dto.ToImportResponse(n))
}
