package handlers

import (
	"context"
	"net/http"
	"time"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/domain/entities"
	"finboard-service/internal/infrastructure/web/respond"
)

// SettingsController owns the dashboard refresh preferences
type SettingsController interface {
	Settings() entities.Settings
	SetAutoRefresh(ctx context.Context, enabled bool) entities.Settings
	SetInterval(ctx context.Context, interval time.Duration) (entities.Settings, error)
}

// SettingsHandler serves /api/v1/settings
type SettingsHandler struct {
	settings  SettingsController
	validator *dto.Validator
}

// NewSettingsHandler creates a settings handler
func NewSettingsHandler(settings SettingsController, validator *dto.Validator) *SettingsHandler {
	return &SettingsHandler{
		settings:  settings,
		validator: validator,
	}
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	respond.JSON(r.Context(), w, http.StatusOK, h.settings.Settings())
}

// Update handles PUT /api/v1/settings. The interval is applied first so an
// invalid one leaves both preferences untouched.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.UpdateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		writeError(ctx, w, err)
		return
	}

	target := dto.ApplySettings(h.settings.Settings(), req)
	current := h.settings.Settings()
	if req.GlobalRefreshInterval != nil {
		var err error
		if current, err = h.settings.SetInterval(ctx, target.GlobalRefreshInterval); err != nil {
			writeError(ctx, w, err)
			return
		}
	}
	if req.AutoRefresh != nil {
		current = h.settings.SetAutoRefresh(ctx, target.AutoRefresh)
	}

	respond.JSON(ctx, w, http.StatusOK, current)
}
