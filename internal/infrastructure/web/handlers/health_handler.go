package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/infrastructure/web/respond"
)

const readyTimeout = 3 * time.Second

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

// Ping calls f
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler serves the liveness and readiness checks
type HealthHandler struct {
	deps map[string]Pinger
	now  func() time.Time
}

// NewHealthHandler creates a health handler over the named dependencies
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	if deps == nil {
		deps = map[string]Pinger{}
	}
	return &HealthHandler{
		deps: deps,
		now:  time.Now,
	}
}

// Health responds quickly without checking dependencies
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(r.Context(), w, http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC(),
		Services:  map[string]string{"service": "running"},
	})
}

// Ready checks every dependency and answers 503 when one fails
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	services := map[string]string{"service": "ready"}
	status, code := "ready", http.StatusOK
	for _, name := range names {
		if err := h.deps[name].Ping(ctx); err != nil {
			services[name] = "error: " + err.Error()
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		services[name] = "ready"
	}

	respond.JSON(r.Context(), w, code, dto.HealthResponse{
		Status:    status,
		Timestamp: h.now().UTC(),
		Services:  services,
	})
}
