package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestTracker отслеживает активные HTTP запросы по маршрутам
type RequestTracker struct {
	mu       sync.Mutex
	active   map[string]int
	inFlight prometheus.Gauge
}

// NewRequestTracker создаёт новый трекер запросов
func NewRequestTracker(inFlight prometheus.Gauge) *RequestTracker {
	return &RequestTracker{
		active:   make(map[string]int),
		inFlight: inFlight,
	}
}

// Start отмечает начало запроса
func (t *RequestTracker) Start(route string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active[route]++
	t.inFlight.Inc()
}

// End отмечает завершение запроса
func (t *RequestTracker) End(route string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active[route] > 0 {
		t.active[route]--
		t.inFlight.Dec()
	}
}

// Active возвращает число активных запросов по маршруту
func (t *RequestTracker) Active(route string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[route]
}
