// Package app собирает зависимости планировщика из конфигурации.
// Используется сервисом и CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"skypath/migrations"
	"skypath/pkg/audit"
	"skypath/pkg/cache"
	"skypath/pkg/config"
	"skypath/pkg/database"
	"skypath/pkg/domain"
	"skypath/pkg/logger"
	"skypath/pkg/metrics"
	"skypath/pkg/passhash"
	"skypath/pkg/ratelimit"
	"skypath/services/planner-svc/internal/delay"
	"skypath/services/planner-svc/internal/render"
	"skypath/services/planner-svc/internal/repository"
	"skypath/services/planner-svc/internal/schedule"
	"skypath/services/planner-svc/internal/service"
)

// App собранные компоненты
type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Repos    *repository.Repositories
	Cache    cache.Cache // nil - кэш выключен
	Audit    audit.Logger
	Limiter  ratelimit.Limiter // nil - без ограничения
	Planner  *service.Planner
	Auth     *service.AuthService
	Renderer *render.Service
}

// LoadNetwork читает расписание из planner.schedule_path или возвращает демо-сеть
func LoadNetwork(cfg *config.PlannerConfig) (*domain.Network, error) {
	if cfg.SchedulePath == "" {
		return schedule.Sample(), nil
	}
	opts := schedule.Options{Sheet: cfg.ScheduleSheet}
	if cfg.ScheduleFormat != "" {
		format, err := schedule.ParseFormat(cfg.ScheduleFormat)
		if err != nil {
			return nil, err
		}
		opts.Format = format
	}
	return schedule.Load(cfg.SchedulePath, opts)
}

// LoadEstimator возвращает оценщик задержек по конфигурации
func LoadEstimator(cfg *config.PlannerConfig) (delay.Estimator, error) {
	if !cfg.DelayEnabled {
		return delay.Disabled, nil
	}
	model, err := delay.LoadOrTrain(cfg.DelayModelPath)
	if err != nil {
		return nil, err
	}
	return delay.NewEstimator(model, nil), nil
}

// New собирает приложение. m может быть nil (CLI без метрик).
// При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (a *App, err error) {
	a = &App{Config: cfg, Metrics: m}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	a.Repos, err = repository.NewRepositories(ctx, &cfg.Database)
	if err != nil {
		return a, err
	}
	if db := a.Repos.DB(); db != nil {
		if err = database.RunMigrations(ctx, db.Pool(), &cfg.Database, migrations.PostgresMigrations, "postgres"); err != nil {
			return a, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a.Audit, err = audit.New(audit.FromConfig(&cfg.Audit))
	if err != nil {
		return a, fmt.Errorf("failed to create audit logger: %w", err)
	}

	var routes *cache.RouteCache
	if cfg.Cache.Enabled {
		a.Cache, err = cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			return a, fmt.Errorf("failed to create cache: %w", err)
		}
		routes = cache.NewRouteCache(a.Cache, cfg.Planner.CacheTTL)
	}

	if cfg.RateLimit.Enabled {
		a.Limiter, err = ratelimit.New(ratelimit.FromConfig(&cfg.RateLimit))
		if err != nil {
			return a, fmt.Errorf("failed to create rate limiter: %w", err)
		}
	}

	network, err := LoadNetwork(&cfg.Planner)
	if err != nil {
		return a, err
	}
	estimator, err := LoadEstimator(&cfg.Planner)
	if err != nil {
		return a, err
	}

	a.Planner, err = service.NewPlanner(network, service.Deps{
		Estimator: estimator,
		Trips:     a.Repos.Trips,
		Routes:    routes,
		Metrics:   m,
		Audit:     a.Audit,
	}, service.OptionsFromConfig(&cfg.Planner))
	if err != nil {
		return a, err
	}

	a.Auth = service.NewAuthService(
		a.Repos.Users,
		passhash.NewJWTManager(passhash.JWTConfigFromAuth(&cfg.Auth)),
		passhash.Argon2ParamsFromAuth(&cfg.Auth),
		cfg.Auth.MinPasswordLength,
		m,
	)
	a.Renderer = render.NewService(render.OptionsFromConfig(&cfg.Report), m)

	return a, nil
}

// Close освобождает ресурсы в обратном порядке создания
func (a *App) Close() error {
	var errs []error
	if a.Limiter != nil {
		errs = append(errs, a.Limiter.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Audit != nil {
		errs = append(errs, a.Audit.Close())
	}
	if a.Repos != nil {
		a.Repos.Close()
	}
	if err := errors.Join(errs...); err != nil {
		logger.Log.Warn("Failed to release resources", "error", err)
		return err
	}
	return nil
}
