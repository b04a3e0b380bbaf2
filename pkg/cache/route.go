package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"skypath/pkg/domain"
)

// RouteCache - специализированный кэш результатов поиска маршрута.
// Хранит только идентификаторы рейсов: рейсы восстанавливаются из той же
// сети, fingerprint которой входит в ключ.
type RouteCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedRoute - кэшированный результат поиска
type CachedRoute struct {
	Found      bool      `json:"found"`
	Arrival    float64   `json:"arrival"`
	FlightIDs  []string  `json:"flight_ids,omitempty"`
	ComputedAt time.Time `json:"computed_at"`
}

// NewRouteCache создаёт кэш маршрутов поверх произвольного Cache
func NewRouteCache(cache Cache, defaultTTL time.Duration) *RouteCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &RouteCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get возвращает кэшированный маршрут. Промах и повреждённая запись дают (nil, false, nil).
func (rc *RouteCache) Get(ctx context.Context, fingerprint, source, destination string, start float64) (*CachedRoute, bool, error) {
	key := BuildRouteKey(fingerprint, source, destination, start)

	data, err := rc.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var route CachedRoute
	if err := json.Unmarshal(data, &route); err != nil {
		_ = rc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}
	if !route.Found {
		route.Arrival = domain.Infinity
	}

	return &route, true, nil
}

// Set сохраняет маршрут. +Inf не сериализуется в JSON, поэтому для
// ненайденного маршрута Arrival не сохраняется.
func (rc *RouteCache) Set(ctx context.Context, fingerprint, source, destination string, start float64, route *CachedRoute, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = rc.defaultTTL
	}

	stored := *route
	stored.ComputedAt = time.Now().UTC()
	if !stored.Found || domain.IsInfinite(stored.Arrival) {
		stored.Found = false
		stored.Arrival = 0
		stored.FlightIDs = nil
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return err
	}

	return rc.cache.Set(ctx, BuildRouteKey(fingerprint, source, destination, start), data, ttl)
}

// Invalidate удаляет маршруты сети с данным fingerprint
func (rc *RouteCache) Invalidate(ctx context.Context, fingerprint string) (int64, error) {
	return rc.cache.DeleteByPattern(ctx, RoutePattern(fingerprint))
}

// InvalidateAll удаляет все маршруты
func (rc *RouteCache) InvalidateAll(ctx context.Context) (int64, error) {
	return rc.cache.DeleteByPattern(ctx, "route:*")
}

// Stats проксирует статистику нижележащего кэша
func (rc *RouteCache) Stats(ctx context.Context) (*Stats, error) {
	return rc.cache.Stats(ctx)
}
