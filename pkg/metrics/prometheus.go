package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы поиска маршрута
const (
	OutcomeFound        = "found"
	OutcomeNotFound     = "not_found"
	OutcomePrecondition = "precondition"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

// Metrics - контейнер метрик планировщика.
// Все методы Record* допускают nil-получатель, чтобы компоненты работали без метрик.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RateLimitedTotal     *prometheus.CounterVec

	// Поиск маршрута
	RouteQueriesTotal *prometheus.CounterVec
	SolveDuration     *prometheus.HistogramVec
	HeapPops          prometheus.Histogram
	StalePops         prometheus.Histogram
	Relaxations       prometheus.Histogram
	ItineraryLegs     prometheus.Histogram
	NetworkVertices   prometheus.Gauge
	NetworkFlights    prometheus.Gauge

	// Коллабораторы
	DelayPredictionsTotal prometheus.Counter
	DelayFallbackTotal    *prometheus.CounterVec
	DelayMinutes          prometheus.Histogram
	TripSavesTotal        *prometheus.CounterVec
	CacheLookupsTotal     *prometheus.CounterVec
	AuthAttemptsTotal     *prometheus.CounterVec
	RendersTotal          *prometheus.CounterVec

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// New регистрирует метрики в reg. Для тестов используйте prometheus.NewRegistry().
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)

	countBuckets := []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000, 5000}

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		RateLimitedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),

		RouteQueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "route_queries_total",
				Help:      "Earliest-arrival queries by outcome",
			},
			[]string{"outcome", "cached"},
		),
		SolveDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "solve_duration_seconds",
				Help:      "Duration of earliest-arrival searches",
				Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"outcome"},
		),
		HeapPops: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "heap_pops",
				Help:      "Heap pops per search",
				Buckets:   countBuckets,
			},
		),
		StalePops: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "stale_pops",
				Help:      "Stale heap entries skipped per search",
				Buckets:   countBuckets,
			},
		),
		Relaxations: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "relaxations",
				Help:      "Label improvements per search",
				Buckets:   countBuckets,
			},
		),
		ItineraryLegs: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "itinerary_legs",
				Help:      "Number of flights in found itineraries",
				Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
			},
		),
		NetworkVertices: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "network_airports",
				Help:      "Airports in the loaded network",
			},
		),
		NetworkFlights: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "planner",
				Name:      "network_flights",
				Help:      "Flights in the loaded network",
			},
		),

		DelayPredictionsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "delay",
				Name:      "predictions_total",
				Help:      "Per-leg delay predictions",
			},
		),
		DelayFallbackTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "delay",
				Name:      "fallback_total",
				Help:      "Delay predictions replaced by zero after a failure",
			},
			[]string{"reason"},
		),
		DelayMinutes: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "delay",
				Name:      "predicted_minutes",
				Help:      "Predicted delay per leg in minutes",
				Buckets:   []float64{0, 5, 10, 15, 20, 30, 45, 60, 120},
			},
		),
		TripSavesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "trips",
				Name:      "saves_total",
				Help:      "Trip persistence attempts",
			},
			[]string{"status"},
		),
		CacheLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Route cache lookups",
			},
			[]string{"result"},
		),
		AuthAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "attempts_total",
				Help:      "Register/login/refresh attempts",
			},
			[]string{"operation", "status"},
		),
		RendersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "render",
				Name:      "documents_total",
				Help:      "Rendered itinerary documents",
			},
			[]string{"format", "status"},
		),

		ServiceInfo: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}
}

// InitMetrics регистрирует метрики в глобальном реестре и делает их метриками по умолчанию
func InitMetrics(namespace string) *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, namespace)
	})
	return defaultMetrics
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	return InitMetrics("skypath")
}

// RecordHTTPRequest записывает метрики HTTP запроса
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited учитывает отклонённый запрос
func (m *Metrics) RecordRateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(route).Inc()
}

// SearchCounters - счётчики одного поиска, передаваемые планировщиком
type SearchCounters struct {
	Pops        int
	StalePops   int
	Relaxations int
	Legs        int
}

// RecordRouteQuery записывает исход поиска. Для ответов из кэша счётчики не пишутся.
func (m *Metrics) RecordRouteQuery(outcome string, cached bool, duration time.Duration, c SearchCounters) {
	if m == nil {
		return
	}
	m.RouteQueriesTotal.WithLabelValues(outcome, strconv.FormatBool(cached)).Inc()
	if cached {
		return
	}
	m.SolveDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.HeapPops.Observe(float64(c.Pops))
	m.StalePops.Observe(float64(c.StalePops))
	m.Relaxations.Observe(float64(c.Relaxations))
	if outcome == OutcomeFound {
		m.ItineraryLegs.Observe(float64(c.Legs))
	}
}

// SetNetworkSize обновляет размер загруженной сети
func (m *Metrics) SetNetworkSize(airports, flights int) {
	if m == nil {
		return
	}
	m.NetworkVertices.Set(float64(airports))
	m.NetworkFlights.Set(float64(flights))
}

// RecordDelayPrediction учитывает прогноз задержки
func (m *Metrics) RecordDelayPrediction(minutes float64) {
	if m == nil {
		return
	}
	m.DelayPredictionsTotal.Inc()
	m.DelayMinutes.Observe(minutes)
}

// RecordDelayFallback учитывает замену прогноза нулём
func (m *Metrics) RecordDelayFallback(reason string) {
	if m == nil {
		return
	}
	m.DelayFallbackTotal.WithLabelValues(reason).Inc()
}

// RecordTripSave учитывает попытку сохранения поездки
func (m *Metrics) RecordTripSave(success bool) {
	if m == nil {
		return
	}
	m.TripSavesTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordCacheLookup учитывает обращение к кэшу маршрутов: hit, miss, error
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordAuth учитывает попытку аутентификации
func (m *Metrics) RecordAuth(operation string, success bool) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
}

// RecordRender учитывает рендеринг документа
func (m *Metrics) RecordRender(format string, success bool) {
	if m == nil {
		return
	}
	m.RendersTotal.WithLabelValues(format, statusLabel(success)).Inc()
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	if m == nil {
		return
	}
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsServer - отдельный HTTP сервер для /metrics
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer создаёт сервер метрик на порту port
func NewMetricsServer(port int, path string) *MetricsServer {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:         ":" + strconv.Itoa(port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start блокирует до остановки сервера
func (s *MetricsServer) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
