package handlers

import (
	"net/http"
	"time"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/domain/interfaces"
	"finboard-service/internal/infrastructure/web/respond"
)

// ConnectionHandler lets the add-widget form check endpoints
type ConnectionHandler struct {
	tester    interfaces.ConnectionTester
	validator *dto.Validator
	now       func() time.Time
}

// NewConnectionHandler creates a connection handler
func NewConnectionHandler(tester interfaces.ConnectionTester, validator *dto.Validator) *ConnectionHandler {
	return &ConnectionHandler{
		tester:    tester,
		validator: validator,
		now:       time.Now,
	}
}

// Test handles POST /api/v1/connections/test. An endpoint that answers with
// an error status gives success=false in the body; one that cannot be reached
// gives the error envelope.
func (h *ConnectionHandler) Test(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.TestConnectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.tester.TestAPIConnection(ctx, req.URL)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, result)
}

// Validate handles POST /api/v1/connections/validate
func (h *ConnectionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ValidateResponseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.tester.ValidateAPIResponse(ctx, req.URL, req.ExpectedFields)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, dto.ValidationResponse(*result))
}

// ProvidersHealth handles GET /api/v1/providers/health
func (h *ConnectionHandler) ProvidersHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(r.Context(), w, http.StatusOK, dto.ProviderHealthResponse{
		Providers: h.tester.GetAPIHealthStatus(r.Context()),
		CheckedAt: h.now().UTC(),
	})
}
