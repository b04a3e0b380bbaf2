package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func newTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}

	c, err := NewRedisCache(&Options{
		RedisAddr:     addr,
		RedisPassword: os.Getenv("REDIS_TEST_PASSWORD"),
		DefaultTTL:    time.Minute,
		KeyPrefix:     "skypath-test:",
	})
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	val, err := c.Get(ctx, "k")
	if err != nil || string(val) != "v" {
		t.Fatalf("Get() = %s, %v", val, err)
	}
	c.Delete(ctx, "k")

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestRedisCache_DeleteByPattern(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, BuildRouteKey("fp", "A", "B", 0), []byte("1"), 0)
	c.Set(ctx, BuildRouteKey("fp", "A", "C", 0), []byte("2"), 0)

	n, err := c.DeleteByPattern(ctx, RoutePattern("fp"))
	if err != nil {
		t.Fatalf("DeleteByPattern() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
}
