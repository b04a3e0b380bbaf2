package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const collectTimeout = 2 * time.Second

// Collector экспортирует Stats кэша в Prometheus в момент scrape
type Collector struct {
	cache Cache

	keys      *prometheus.Desc
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc
	memory    *prometheus.Desc
}

// NewCollector создаёт коллектор для c. Метка backend берётся из Stats.
func NewCollector(c Cache, namespace string) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "route_cache", name), help, []string{"backend"}, nil)
	}
	return &Collector{
		cache:     c,
		keys:      desc("keys", "Number of cached routes"),
		hits:      desc("hits_total", "Cache hits reported by the backend"),
		misses:    desc("misses_total", "Cache misses reported by the backend"),
		evictions: desc("evictions_total", "Entries evicted by the backend"),
		memory:    desc("memory_bytes", "Memory used by the backend"),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.memory
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	stats, err := c.cache.Stats(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.keys, err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(stats.TotalKeys), stats.Backend)
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits), stats.Backend)
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses), stats.Backend)
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(stats.Evictions), stats.Backend)
	ch <- prometheus.MustNewConstMetric(c.memory, prometheus.GaugeValue, float64(stats.MemoryBytes), stats.Backend)
}
