package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/application/refresh"
	"finboard-service/internal/application/services"
	"finboard-service/internal/application/widgets"
	"finboard-service/internal/infrastructure/config"
	"finboard-service/internal/infrastructure/customapi"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"
	"finboard-service/internal/infrastructure/providers"
	"finboard-service/internal/infrastructure/providers/alphavantage"
	"finboard-service/internal/infrastructure/providers/coingecko"
	"finboard-service/internal/infrastructure/providers/exchangerate"
	"finboard-service/internal/infrastructure/providers/finnhub"
	"finboard-service/internal/infrastructure/repositories/cache"
	"finboard-service/internal/infrastructure/web/handlers"
	"finboard-service/internal/infrastructure/web/server"
	"finboard-service/internal/infrastructure/web/stream"
)

const (
	serviceName    = "finboard-service"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logCfg := logging.NewConfig(serviceName, serviceVersion, cfg.Logging.Environment).
		WithLevel(logging.LogLevelFromString(cfg.Logging.Level)).
		WithFormat(logging.LogFormatFromString(cfg.Logging.Format))
	if err := logging.InitializeGlobalLoggers(logCfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	ctx := logging.WithRequestID(context.Background(), logging.GenerateRequestID())
	logging.Info(ctx, "Starting FinBoard data service", logging.Fields{
		"version":     serviceVersion,
		"environment": cfg.Logging.Environment,
	})
	metrics.SetApplicationInfo(serviceVersion, runtime.Version())

	// Provider clients
	retry := providers.RetryPolicy{
		MaxRetries:        cfg.Pipeline.MaxRetries,
		BaseBackoff:       cfg.Pipeline.BaseBackoff,
		BackoffMultiplier: cfg.Pipeline.BackoffMultiplier,
		MaxBackoff:        cfg.Pipeline.MaxBackoff,
	}
	finnhubClient := finnhub.NewClient(providerConfig(cfg.Providers.Finnhub, retry))
	alphaClient := alphavantage.NewClient(providerConfig(cfg.Providers.AlphaVantage, retry))
	geckoClient := coingecko.NewClient(coingecko.Config{
		Config:     providerConfig(cfg.Providers.CoinGecko.ProviderConfig, retry),
		ProBaseURL: cfg.Providers.CoinGecko.ProBaseURL,
	})
	forexClient := exchangerate.NewClient(providerConfig(cfg.Providers.ExchangeRate, retry))
	customClient := customapi.NewClient(customapi.Config{
		Timeout:              cfg.Providers.Custom.Timeout,
		RetryCount:           cfg.Providers.Custom.RetryCount,
		AllowPrivateNetworks: cfg.Providers.Custom.AllowPrivateNetworks,
	})

	dataService := services.NewDataService(services.Providers{
		Stocks:         finnhubClient,
		StocksFallback: alphaClient,
		Crypto:         geckoClient,
		Forex:          forexClient,
		Charts:         alphaClient,
		Intraday:       finnhubClient,
		Custom:         customClient,
	},
		services.WithDedupTTL(cfg.DataService.DedupTTL),
		services.WithPopularSymbols(cfg.DataService.PopularSymbols),
		services.WithDefaultCryptoLimit(cfg.DataService.DefaultCryptoLimit),
	)
	tester := services.NewConnectionTester(services.Pingers{
		AlphaVantage: alphaClient,
		CoinGecko:    geckoClient,
		ExchangeRate: forexClient,
		Finnhub:      finnhubClient,
	}, customClient, cfg.DataService.HealthTimeout)

	// Layout persistence
	backend, err := cache.NewFactory().CreateCache(cache.ConfigFromLayout(cfg.Layout))
	if err != nil {
		logging.ErrorWithError(ctx, "Failed to create layout backend", err, logging.Fields{
			"backend": cfg.Layout.Backend,
		})
		os.Exit(1)
	}
	layoutStore := cache.NewLayoutStore(backend,
		cache.WithKeyPrefix(cfg.Layout.KeyPrefix),
		cache.WithMaxAge(cfg.Layout.MaxAge),
	)

	// Widgets and refresh
	store := widgets.NewStore(
		widgets.WithRepository(layoutStore),
		widgets.WithMaxRetries(cfg.Refresh.MaxManualRetries),
	)
	orchestrator := refresh.NewOrchestrator(store, dataService, refresh.Config{
		AutoRefresh:        cfg.Refresh.AutoRefresh,
		Interval:           cfg.Refresh.Interval,
		MaxConcurrent:      cfg.Refresh.MaxConcurrent,
		StaggerDelay:       cfg.Refresh.StaggerDelay,
		BatchPause:         cfg.Refresh.BatchPause,
		AutoRefreshStagger: cfg.Refresh.AutoRefreshStagger,
		FetchTimeout:       cfg.Refresh.FetchTimeout,
	}, refresh.WithSettingsRepository(layoutStore))

	if err := orchestrator.Reload(ctx, widgets.DefaultWidgets()); err != nil {
		logging.WarnWithError(ctx, "Dashboard restored with defaults", err, nil)
	}
	if err := orchestrator.Start(); err != nil {
		logging.ErrorWithError(ctx, "Failed to start auto refresh", err, nil)
		os.Exit(1)
	}

	// HTTP surface
	hub := stream.NewHub(store, cfg.Server.CORSOrigins, cfg.Server.StreamPing)
	validator := dto.NewValidator()

	readiness := map[string]handlers.Pinger{}
	if p, ok := backend.(handlers.Pinger); ok {
		readiness["layout_backend"] = p
	}

	router := server.NewRouter(server.Handlers{
		Health:      handlers.NewHealthHandler(readiness),
		Data:        handlers.NewDataHandler(dataService, dataService),
		Widgets:     handlers.NewWidgetHandler(store, orchestrator, validator),
		Layout:      handlers.NewLayoutHandler(layoutStore, orchestrator, widgets.DefaultWidgets),
		Templates:   handlers.NewTemplateHandler(store, orchestrator),
		Connections: handlers.NewConnectionHandler(tester, validator),
		Settings:    handlers.NewSettingsHandler(orchestrator, validator),
		Stream:      hub,
	}, cfg)
	srv := server.NewServer(router, cfg.Server)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithError(ctx, "HTTP server failed", err, nil)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logging.Info(ctx, "Shutting down", logging.Fields{"signal": sig.String()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	hub.Close()
	if err := srv.Stop(shutdownCtx); err != nil {
		logging.ErrorWithError(ctx, "Server forced to shutdown", err, nil)
	}
	if err := orchestrator.Stop(shutdownCtx); err != nil {
		logging.WarnWithError(ctx, "Refresh orchestrator did not stop cleanly", err, nil)
	}
	if closer, ok := backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logging.WarnWithError(ctx, "Failed to close layout backend", err, nil)
		}
	}

	logging.Info(ctx, "Shutdown completed", nil)
}

func providerConfig(p config.ProviderConfig, retry providers.RetryPolicy) providers.Config {
	return providers.Config{
		BaseURL:           p.BaseURL,
		APIKey:            p.APIKey,
		RequestsPerMinute: p.RequestsPerMinute,
		Pacing:            p.Pacing,
		CacheTTL:          p.CacheTTL,
		Timeout:           p.Timeout,
		Retry:             retry,
	}
}
