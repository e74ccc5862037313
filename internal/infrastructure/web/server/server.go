package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"finboard-service/internal/infrastructure/config"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"
	"finboard-service/internal/infrastructure/web/handlers"
	"finboard-service/internal/infrastructure/web/middleware"
)

const idleTimeout = 60 * time.Second

// Handlers are the HTTP endpoints mounted by the router
type Handlers struct {
	Health      *handlers.HealthHandler
	Data        *handlers.DataHandler
	Widgets     *handlers.WidgetHandler
	Layout      *handlers.LayoutHandler
	Templates   *handlers.TemplateHandler
	Connections *handlers.ConnectionHandler
	Settings    *handlers.SettingsHandler
	Stream      http.Handler
}

// NewRouter mounts every route and wraps the router with the middleware
// chain: tracing, CORS, logging, inbound rate limit and API key auth
func NewRouter(h Handlers, cfg *config.Config) http.Handler {
	router := mux.NewRouter()
	router.Use(metrics.HTTPMetricsMiddleware)

	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.Health.Ready).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if h.Stream != nil {
		router.Handle("/ws", h.Stream).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/data/cache", h.Data.ClearCache).Methods(http.MethodDelete)
	api.HandleFunc("/data/{source}", h.Data.GetData).Methods(http.MethodGet)

	// /widgets/order must be registered before /widgets/{id}
	api.HandleFunc("/widgets/order", h.Widgets.Reorder).Methods(http.MethodPut)
	api.HandleFunc("/widgets", h.Widgets.List).Methods(http.MethodGet)
	api.HandleFunc("/widgets", h.Widgets.Add).Methods(http.MethodPost)
	api.HandleFunc("/widgets/{id}", h.Widgets.Get).Methods(http.MethodGet)
	api.HandleFunc("/widgets/{id}", h.Widgets.Update).Methods(http.MethodPut)
	api.HandleFunc("/widgets/{id}", h.Widgets.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/widgets/{id}/refresh", h.Widgets.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/widgets/{id}/retry", h.Widgets.Retry).Methods(http.MethodPost)
	api.HandleFunc("/widgets/{id}/duplicate", h.Widgets.Duplicate).Methods(http.MethodPost)

	api.HandleFunc("/layout/export", h.Layout.Export).Methods(http.MethodGet)
	api.HandleFunc("/layout/import", h.Layout.Import).Methods(http.MethodPost)
	api.HandleFunc("/layout/templates", h.Templates.List).Methods(http.MethodGet)
	api.HandleFunc("/layout/templates/{id}", h.Templates.Apply).Methods(http.MethodPost)

	api.HandleFunc("/connections/test", h.Connections.Test).Methods(http.MethodPost)
	api.HandleFunc("/connections/validate", h.Connections.Validate).Methods(http.MethodPost)
	api.HandleFunc("/providers/health", h.Connections.ProvidersHealth).Methods(http.MethodGet)

	api.HandleFunc("/settings", h.Settings.Get).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.Settings.Update).Methods(http.MethodPut)

	var handler http.Handler = router
	handler = middleware.NewAuthMiddleware(cfg.Auth).Handler(handler)
	handler = middleware.NewRateLimitMiddleware(cfg.RateLimit).Handler(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = corsHandler(cfg.Server.CORSOrigins, cfg.Auth.HeaderName).Handler(handler)
	handler = middleware.RequestTracingMiddleware(handler)
	return handler
}

func corsHandler(origins []string, authHeader string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	if authHeader == "" {
		authHeader = "X-API-Key"
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID", authHeader},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	})
}

// Server encapsulates HTTP server configuration
type Server struct {
	httpServer *http.Server
	port       int
}

// NewServer creates a new server instance
func NewServer(handler http.Handler, cfg config.ServerConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  idleTimeout,
		},
		port: cfg.Port,
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	ctx := context.Background()

	logging.Info(ctx, "HTTP server starting", logging.Fields{
		"port": s.port,
	})

	logging.Info(ctx, "Available endpoints", logging.Fields{
		"endpoints": []string{
			fmt.Sprintf("GET  http://localhost:%d/health", s.port),
			fmt.Sprintf("GET  http://localhost:%d/ready", s.port),
			fmt.Sprintf("GET  http://localhost:%d/api/v1/data/{source}", s.port),
			fmt.Sprintf("GET  http://localhost:%d/api/v1/widgets", s.port),
			fmt.Sprintf("GET  http://localhost:%d/api/v1/settings", s.port),
			fmt.Sprintf("GET  ws://localhost:%d/ws", s.port),
		},
	})

	return s.httpServer.ListenAndServe()
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	logging.Info(ctx, "Stopping HTTP server gracefully", logging.Fields{
		"port": s.port,
	})

	return s.httpServer.Shutdown(ctx)
}

// GetPort returns the configured port
func (s *Server) GetPort() int {
	return s.port
}
