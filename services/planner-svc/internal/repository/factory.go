package repository

import (
	"context"
	"fmt"

	"skypath/pkg/config"
	"skypath/pkg/database"
)

// Repositories контейнер репозиториев
type Repositories struct {
	Users UserRepository
	Trips TripRepository
	db    *database.PostgresDB // Для закрытия при shutdown
}

// Close закрывает соединения
func (r *Repositories) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// DB возвращает пул PostgreSQL или nil для in-memory хранилища
func (r *Repositories) DB() *database.PostgresDB {
	return r.db
}

// Ping проверяет доступность хранилища
func (r *Repositories) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.HealthCheck(ctx)
}

// NewRepositories создаёт репозитории на основе конфигурации:
// PostgreSQL при database.enabled, иначе in-memory.
func NewRepositories(ctx context.Context, cfg *config.DatabaseConfig) (*Repositories, error) {
	if cfg == nil || !cfg.Enabled {
		return NewMemoryRepositories(), nil
	}

	db, err := database.NewPostgresDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &Repositories{
		Users: NewPostgresUserRepository(db),
		Trips: NewPostgresTripRepository(db),
		db:    db,
	}, nil
}

// NewMemoryRepositories создаёт in-memory репозитории
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Users: NewMemoryUserRepository(),
		Trips: NewMemoryTripRepository(),
	}
}
