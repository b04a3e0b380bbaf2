// Package testutil помогает интеграционным тестам находить внешние зависимости.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"skypath/pkg/config"
)

// Environment variables
const (
	EnvIntegrationTests = "INTEGRATION_TESTS"
	EnvRedisAddr        = "REDIS_TEST_ADDR"
	EnvPostgresHost     = "POSTGRES_HOST"
)

// SkipIfNotIntegration пропускает тест если не integration mode
func SkipIfNotIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationTests) != "1" {
		t.Skip("skipping integration test; set INTEGRATION_TESTS=1 to run")
	}
}

// RequireRedis проверяет доступность Redis и возвращает адрес
func RequireRedis(t *testing.T) string {
	t.Helper()
	SkipIfNotIntegration(t)

	addr := os.Getenv(EnvRedisAddr)
	if addr == "" {
		t.Skip(EnvRedisAddr + " not set")
	}
	requireTCP(t, addr)
	return addr
}

// RequirePostgres проверяет доступность PostgreSQL и возвращает конфигурацию
func RequirePostgres(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	SkipIfNotIntegration(t)

	cfg := PostgresConfig()
	requireTCP(t, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	return cfg
}

// PostgresConfig возвращает конфигурацию тестовой базы
func PostgresConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Enabled:         true,
		Host:            getEnvOrDefault(EnvPostgresHost, "localhost"),
		Port:            getEnvIntOrDefault("POSTGRES_PORT", 5433),
		Database:        getEnvOrDefault("POSTGRES_DB", "skypath_test"),
		Username:        getEnvOrDefault("POSTGRES_USER", "postgres"),
		Password:        getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
		AutoMigrate:     true,
	}
}

func requireTCP(t *testing.T, addr string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.Skipf("service not available at %s: %v", addr, err)
	}
	conn.Close()
}

// Context возвращает контекст с таймаутом для тестов
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// RandomString генерирует случайную строку заданной длины
func RandomString(n int) string {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)[:n]
}

// UniqueName генерирует уникальное имя для теста
func UniqueName(prefix string) string {
	return prefix + "_" + RandomString(8)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
