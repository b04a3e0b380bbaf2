package cache

import (
	"testing"
	"time"

	"skypath/pkg/config"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Backend != BackendMemory {
		t.Errorf("expected backend 'memory', got %s", opts.Backend)
	}
	if opts.DefaultTTL != 5*time.Minute {
		t.Errorf("expected default TTL 5m, got %v", opts.DefaultTTL)
	}
	if opts.KeyPrefix != "skypath:" {
		t.Errorf("expected key prefix 'skypath:', got %s", opts.KeyPrefix)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := &config.CacheConfig{
		Driver:     "redis",
		Host:       "redis.local",
		Port:       6380,
		Password:   "secret",
		DB:         1,
		DefaultTTL: 10 * time.Minute,
		MaxEntries: 500,
	}

	opts := FromConfig(cfg)

	if opts.Backend != BackendRedis {
		t.Errorf("expected backend 'redis', got %s", opts.Backend)
	}
	if opts.DefaultTTL != 10*time.Minute {
		t.Errorf("expected TTL 10m, got %v", opts.DefaultTTL)
	}
	if opts.RedisAddr != "redis.local:6380" {
		t.Errorf("expected addr 'redis.local:6380', got %s", opts.RedisAddr)
	}
	if opts.RedisPassword != "secret" || opts.RedisDB != 1 {
		t.Errorf("unexpected redis credentials %+v", opts)
	}
	if opts.MaxEntries != 500 {
		t.Errorf("expected max entries 500, got %d", opts.MaxEntries)
	}
}

func TestFromConfig_KeepsDefaultsForZeroValues(t *testing.T) {
	opts := FromConfig(&config.CacheConfig{Driver: "memory"})
	if opts.DefaultTTL != 5*time.Minute || opts.MaxEntries != 10000 {
		t.Errorf("zero values should keep defaults, got %+v", opts)
	}
}

func TestNew(t *testing.T) {
	for _, opts := range []*Options{nil, {Backend: "memory"}, {Backend: "unknown"}} {
		c, err := New(opts)
		if err != nil {
			t.Fatalf("New(%+v) error = %v", opts, err)
		}
		if _, ok := c.(*MemoryCache); !ok {
			t.Errorf("expected memory cache, got %T", c)
		}
		c.Close()
	}
}

func TestNew_RedisUnavailable(t *testing.T) {
	_, err := New(&Options{Backend: BackendRedis, RedisAddr: "127.0.0.1:1"})
	if err == nil {
		t.Error("expected ping failure for unreachable redis")
	}
}
