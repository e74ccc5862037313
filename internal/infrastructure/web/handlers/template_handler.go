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

// WidgetLister reads the current dashboard
type WidgetLister interface {
	List() []entities.Widget
}

// LayoutApplier replaces the running dashboard with a new layout
type LayoutApplier interface {
	ApplyLayout(ctx context.Context, ws []entities.Widget) []entities.Widget
}

// TemplateHandler serves the dashboard presets
type TemplateHandler struct {
	lister  WidgetLister
	applier LayoutApplier
}

// NewTemplateHandler creates a template handler
func NewTemplateHandler(lister WidgetLister, applier LayoutApplier) *TemplateHandler {
	return &TemplateHandler{
		lister:  lister,
		applier: applier,
	}
}

// List handles GET /api/v1/layout/templates with an optional category filter
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	respond.JSON(r.Context(), w, http.StatusOK, dto.TemplateListResponse{
		Templates:   widgets.TemplatesByCategory(category),
		Categories:  widgets.TemplateCategories(),
		Suggestions: widgets.TemplateSuggestions(h.lister.List()),
	})
}

// Apply handles POST /api/v1/layout/templates/{id}. The current widgets are
// replaced, not merged.
func (h *TemplateHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	tmpl, err := widgets.TemplateByID(id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	applied := h.applier.ApplyLayout(ctx, tmpl.Instantiate())
	logging.Widgets().Info(ctx, "Dashboard template applied", logging.Fields{
		"template": tmpl.ID,
		"widgets":  len(applied),
	})

	respond.JSON(ctx, w, http.StatusOK, dto.ApplyTemplateResponse{
		Template: tmpl.ID,
		Widgets:  applied,
	})
}
