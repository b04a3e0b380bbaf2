package main

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"skypath/pkg/cache"
	"skypath/pkg/config"
	"skypath/pkg/logger"
	"skypath/pkg/metrics"
	"skypath/pkg/server"
	"skypath/pkg/telemetry"
	"skypath/services/planner-svc/internal/app"
	"skypath/services/planner-svc/internal/handlers"
)

func main() {
	cfg, err := config.LoadWithServiceDefaults("planner-svc", 8080)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	// Инициализация телеметрии
	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg.App, cfg.Tracing))
	if err != nil {
		logger.Log.Warn("Failed to init telemetry", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Warn("Failed to shutdown telemetry", "error", err)
			}
		}()
		if cfg.Tracing.Enabled {
			logger.Log.Info("Telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	m := metrics.InitMetrics(cfg.Metrics.Namespace)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	a, err := app.New(ctx, cfg, m)
	if err != nil {
		logger.Fatal("failed to initialize planner", "error", err)
	}

	if a.Cache != nil {
		if err := prometheus.Register(cache.NewCollector(a.Cache, cfg.Metrics.Namespace)); err != nil {
			logger.Log.Warn("Failed to register cache collector", "error", err)
		}
	}

	h := handlers.New(cfg, handlers.Deps{
		Planner:  a.Planner,
		Auth:     a.Auth,
		Renderer: a.Renderer,
		Ready:    a.Repos,
		Metrics:  m,
		Tracker:  metrics.NewRequestTracker(m.HTTPRequestsInFlight),
		Limiter:  a.Limiter,
		Audit:    a.Audit,
	})

	srv := server.New(cfg, h.Router())
	srv.OnShutdown("planner", func(context.Context) error {
		return a.Close()
	})

	logger.Info("Starting planner service",
		"port", cfg.HTTP.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"database", cfg.Database.Enabled,
		"cache", cfg.Cache.Enabled,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server failed", "error", err)
	}
}
