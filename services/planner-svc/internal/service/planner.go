package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"skypath/pkg/apperror"
	"skypath/pkg/audit"
	"skypath/pkg/cache"
	"skypath/pkg/config"
	"skypath/pkg/domain"
	"skypath/pkg/logger"
	"skypath/pkg/metrics"
	"skypath/pkg/telemetry"
	"skypath/services/planner-svc/internal/algorithms"
	"skypath/services/planner-svc/internal/delay"
	"skypath/services/planner-svc/internal/repository"
)

// Options параметры планировщика
type Options struct {
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	SaveTrips      bool
	TripListLimit  int
}

// OptionsFromConfig собирает Options из секции planner
func OptionsFromConfig(cfg *config.PlannerConfig) Options {
	return Options{
		RequestTimeout: cfg.RequestTimeout,
		CacheTTL:       cfg.CacheTTL,
		SaveTrips:      cfg.SaveTrips,
		TripListLimit:  cfg.TripListLimit,
	}
}

// Deps зависимости планировщика. Nil поля отключают соответствующую функцию.
type Deps struct {
	Estimator delay.Estimator
	Trips     repository.TripRepository
	Routes    *cache.RouteCache
	Metrics   *metrics.Metrics
	Audit     audit.Logger
}

// PlanRequest - запрос маршрута. UserID == 0 - анонимный запрос.
type PlanRequest struct {
	Source      string
	Destination string
	StartTime   float64
	UserID      int64
}

// Planner связывает сеть рейсов, поиск, оценку задержек и сохранение поездок
type Planner struct {
	mu          sync.RWMutex
	network     *domain.Network
	fingerprint string

	estimator *delay.SafeEstimator
	trips     repository.TripRepository
	routes    *cache.RouteCache
	metrics   *metrics.Metrics
	audit     audit.Logger
	opts      Options
}

// NewPlanner создаёт планировщик над сетью n
func NewPlanner(n *domain.Network, deps Deps, opts Options) (*Planner, error) {
	p := &Planner{
		estimator: delay.Safe(deps.Estimator, deps.Metrics),
		trips:     deps.Trips,
		routes:    deps.Routes,
		metrics:   deps.Metrics,
		audit:     deps.Audit,
		opts:      opts,
	}
	if err := p.SetNetwork(context.Background(), n); err != nil {
		return nil, err
	}
	return p, nil
}

// SetNetwork атомарно заменяет сеть. Выполняющиеся запросы дорабатывают на старой сети.
func (p *Planner) SetNetwork(ctx context.Context, n *domain.Network) error {
	if n == nil {
		return apperror.ErrNilNetwork
	}
	if n.VertexCount() == 0 {
		return apperror.New(apperror.CodeEmptyNetwork, "network has no airports")
	}

	fp := cache.NetworkFingerprint(n)

	p.mu.Lock()
	old := p.fingerprint
	p.network = n
	p.fingerprint = fp
	p.mu.Unlock()

	p.metrics.SetNetworkSize(n.VertexCount(), n.FlightCount())

	if p.routes != nil && old != "" && old != fp {
		if _, err := p.routes.Invalidate(ctx, old); err != nil {
			logger.FromContext(ctx).Warn("Failed to invalidate cached routes", "fingerprint", old, "error", err)
		}
	}

	logger.FromContext(ctx).Info("Flight network loaded",
		"airports", n.VertexCount(),
		"flights", n.FlightCount(),
		"fingerprint", fp,
	)
	p.logAudit(ctx, audit.NewEntry().
		Action(audit.ActionLoadSchedule).
		Outcome(audit.OutcomeSuccess).
		Resource("network", fp).
		Meta("airports", n.VertexCount()).
		Meta("flights", n.FlightCount()))

	return nil
}

// Network возвращает текущую сеть и её fingerprint
func (p *Planner) Network() (*domain.Network, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.network, p.fingerprint
}

// Plan ищет маршрут с самым ранним прибытием, оценивает задержки и сохраняет поездку
// авторизованного пользователя. Ненайденный маршрут - Itinerary{Found: false} без ошибки.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*Itinerary, error) {
	ctx, span := telemetry.StartSpan(ctx, "Planner.Plan",
		trace.WithAttributes(telemetry.QueryAttributes(req.Source, req.Destination, req.StartTime)...),
	)
	defer span.End()

	log := logger.FromContext(ctx)
	started := time.Now()

	if err := ValidateStartHour(req.StartTime); err != nil {
		p.metrics.RecordRouteQuery(metrics.OutcomePrecondition, false, time.Since(started), metrics.SearchCounters{})
		return nil, err
	}

	n, fp := p.Network()
	span.SetAttributes(telemetry.NetworkAttributes(n.VertexCount(), n.FlightCount(), fp)...)

	q := algorithms.Query{Source: req.Source, Destination: req.Destination, Start: req.StartTime}
	if err := algorithms.ValidateQuery(n, q); err != nil {
		p.metrics.RecordRouteQuery(metrics.OutcomePrecondition, false, time.Since(started), metrics.SearchCounters{})
		telemetry.SetError(ctx, err)
		return nil, err
	}

	it := &Itinerary{
		Source:      req.Source,
		Destination: req.Destination,
		StartTime:   req.StartTime,
		Arrival:     domain.Infinity,
	}

	path, found, err := p.lookup(ctx, n, fp, q, it)
	if err != nil {
		outcome := metrics.OutcomeError
		if apperror.Is(err, apperror.CodeTimeout) {
			outcome = metrics.OutcomeTimeout
		}
		p.metrics.RecordRouteQuery(outcome, false, time.Since(started), metrics.SearchCounters{})
		telemetry.SetError(ctx, err)
		return nil, err
	}

	counters := metrics.SearchCounters{
		Pops:        it.Stats.Pops,
		StalePops:   it.Stats.StalePops,
		Relaxations: it.Stats.Relaxations,
		Legs:        len(path),
	}

	if !found {
		p.metrics.RecordRouteQuery(metrics.OutcomeNotFound, it.Cached, time.Since(started), counters)
		span.SetAttributes(telemetry.ResultAttributes(false, 0, 0, it.Stats.Pops, it.Cached)...)
		log.Info("No route found",
			"source", req.Source,
			"destination", req.Destination,
			"start", req.StartTime,
		)
		return it, nil
	}

	it.Found = true
	it.Arrival = path.Arrival()
	it.Route = path.Route()
	it.ArrivalClock = domain.FormatHour(it.Arrival)
	p.estimateDelays(ctx, path, it)

	p.metrics.RecordRouteQuery(metrics.OutcomeFound, it.Cached, time.Since(started), counters)
	span.SetAttributes(telemetry.ResultAttributes(true, it.Arrival, len(path), it.Stats.Pops, it.Cached)...)
	span.SetAttributes(telemetry.DelayAttributes(it.TotalDelayMinutes, it.DelayFallbacks > 0)...)

	if req.UserID != 0 && p.opts.SaveTrips && p.trips != nil {
		p.saveTrip(ctx, req.UserID, it)
	}

	log.Info("Route planned",
		"route", it.Route,
		"arrival", it.ArrivalClock,
		"delay_minutes", it.TotalDelayMinutes,
		"cached", it.Cached,
		"saved", it.Saved,
	)
	return it, nil
}

// lookup берёт маршрут из кэша или выполняет поиск и кэширует результат
func (p *Planner) lookup(ctx context.Context, n *domain.Network, fp string, q algorithms.Query, it *Itinerary) (domain.Path, bool, error) {
	if path, found, ok := p.fromCache(ctx, n, fp, q); ok {
		it.Cached = true
		return path, found, nil
	}

	searchCtx := ctx
	if p.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, p.opts.RequestTimeout)
		defer cancel()
	}

	res, err := algorithms.EarliestArrival(searchCtx, n, q)
	if err != nil {
		return nil, false, err
	}
	it.Stats = SearchStats{
		Pops:        res.Stats.Pops,
		StalePops:   res.Stats.StalePops,
		Relaxations: res.Stats.Relaxations,
		EarlyStop:   res.Stats.EarlyStop,
	}

	if p.routes != nil {
		cached := &cache.CachedRoute{Found: res.Found, Arrival: res.Arrival, FlightIDs: res.Path.FlightIDs()}
		if err := p.routes.Set(ctx, fp, q.Source, q.Destination, q.Start, cached, p.opts.CacheTTL); err != nil {
			logger.FromContext(ctx).Warn("Failed to cache route", "error", err)
		}
	}

	return res.Path, res.Found, nil
}

// fromCache восстанавливает маршрут из кэша. ok == false - промах.
func (p *Planner) fromCache(ctx context.Context, n *domain.Network, fp string, q algorithms.Query) (domain.Path, bool, bool) {
	if p.routes == nil {
		return nil, false, false
	}

	cached, hit, err := p.routes.Get(ctx, fp, q.Source, q.Destination, q.Start)
	if err != nil {
		p.metrics.RecordCacheLookup("error")
		logger.FromContext(ctx).Warn("Route cache lookup failed", "error", err)
		return nil, false, false
	}
	if !hit {
		p.metrics.RecordCacheLookup("miss")
		return nil, false, false
	}
	if !cached.Found {
		p.metrics.RecordCacheLookup("hit")
		return nil, false, true
	}

	path := make(domain.Path, 0, len(cached.FlightIDs))
	for _, id := range cached.FlightIDs {
		f, ok := n.Flight(id)
		if !ok {
			p.metrics.RecordCacheLookup("miss")
			return nil, false, false
		}
		path = append(path, f)
	}
	if len(path) == 0 || path.Validate(q.Source, q.Start) != nil || path[len(path)-1].Dest != q.Destination {
		p.metrics.RecordCacheLookup("miss")
		return nil, false, false
	}

	p.metrics.RecordCacheLookup("hit")
	telemetry.AddEvent(ctx, "cache_hit", attribute.Int("legs", len(path)))
	return path, true, true
}

func (p *Planner) estimateDelays(ctx context.Context, path domain.Path, it *Itinerary) {
	var total int
	it.Legs = make([]Leg, len(path))

	// итог складывается из тех же целых минут, что показаны по рейсам
	for i, f := range path {
		v, fallback := p.estimator.Predict(ctx, f)
		if fallback {
			it.DelayFallbacks++
		}
		minutes := delay.Minutes(v)
		total += minutes
		it.Legs[i] = Leg{
			Flight:         f,
			PredictedDelay: v,
			DelayMinutes:   minutes,
			Delayed:        minutes > domain.DelayWarningMinutes,
		}
	}

	it.TotalDelayMinutes = total
	it.ArrivalWithDelay = FormatClock(it.Arrival, it.TotalDelayMinutes)
}

// saveTrip сохраняет поездку. Ошибка сохранения не отменяет маршрут.
func (p *Planner) saveTrip(ctx context.Context, userID int64, it *Itinerary) {
	trip := &repository.Trip{
		UserID:       userID,
		Source:       it.Source,
		Destination:  it.Destination,
		StartTime:    it.StartTime,
		Itinerary:    it.Route,
		FlightIDs:    it.FlightIDs(),
		ArrivalTime:  it.Arrival,
		DelayMinutes: it.TotalDelayMinutes,
		Legs:         make([]repository.TripLeg, len(it.Legs)),
	}
	for i, l := range it.Legs {
		trip.Legs[i] = repository.TripLeg{
			Seq:          i + 1,
			FlightID:     l.Flight.ID,
			Origin:       l.Flight.Origin,
			Destination:  l.Flight.Dest,
			Departure:    l.Flight.Departure,
			Arrival:      l.Flight.Arrival,
			DelayMinutes: l.DelayMinutes,
		}
	}

	entry := audit.NewEntry().
		Action(audit.ActionSaveTrip).
		User(strconv.FormatInt(userID, 10), "").
		Meta("route", it.Route)

	if err := p.trips.Save(ctx, trip); err != nil {
		it.Saved = false
		it.SaveError = err.Error()
		p.metrics.RecordTripSave(false)
		telemetry.RecordError(ctx, err)
		logger.FromContext(ctx).Warn("Failed to save trip", "user_id", userID, "error", err)
		p.logAudit(ctx, entry.Outcome(audit.OutcomeFailure).Error(string(apperror.Code(err)), err.Error()))
		return
	}

	it.Saved = true
	it.TripID = trip.ID
	p.metrics.RecordTripSave(true)
	p.logAudit(ctx, entry.Outcome(audit.OutcomeSuccess).Resource("trip", trip.ID))
}

func (p *Planner) logAudit(ctx context.Context, b *audit.Builder) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Log(ctx, b.Service("planner").Build()); err != nil {
		logger.FromContext(ctx).Warn("Failed to write audit entry", "error", err)
	}
}

// AirportInfo - аэропорт со степенями
type AirportInfo struct {
	Name      string `json:"name"`
	Departing int    `json:"departing"`
	Arriving  int    `json:"arriving"`
}

// Airports возвращает аэропорты сети в алфавитном порядке
func (p *Planner) Airports() []AirportInfo {
	n, _ := p.Network()
	names := n.Vertices()
	out := make([]AirportInfo, len(names))
	for i, v := range names {
		out[i] = AirportInfo{Name: v, Departing: n.OutDegree(v), Arriving: n.InboundFlights(v)}
	}
	return out
}

// Flights возвращает рейсы в порядке добавления. Пустой фильтр не ограничивает.
func (p *Planner) Flights(origin, dest string) []*domain.Flight {
	n, _ := p.Network()
	all := n.Flights()
	if origin == "" && dest == "" {
		return all
	}
	return slices.DeleteFunc(slices.Clone(all), func(f *domain.Flight) bool {
		return (origin != "" && f.Origin != origin) || (dest != "" && f.Dest != dest)
	})
}

// Statistics возвращает статистику текущей сети
func (p *Planner) Statistics() *domain.NetworkStatistics {
	n, _ := p.Network()
	return domain.CalculateStatistics(n)
}

// ListTrips возвращает поездки пользователя
func (p *Planner) ListTrips(ctx context.Context, userID int64, limit int) ([]*repository.Trip, error) {
	if p.trips == nil {
		return nil, apperror.New(apperror.CodeUnimplemented, "trip history is disabled")
	}
	if limit <= 0 || (p.opts.TripListLimit > 0 && limit > p.opts.TripListLimit) {
		limit = p.opts.TripListLimit
	}
	trips, err := p.trips.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodePersistence, "failed to list trips")
	}
	return trips, nil
}

// GetTrip возвращает поездку пользователя
func (p *Planner) GetTrip(ctx context.Context, userID int64, id string) (*repository.Trip, error) {
	if p.trips == nil {
		return nil, apperror.New(apperror.CodeUnimplemented, "trip history is disabled")
	}
	trip, err := p.trips.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.CodePersistence, "failed to get trip")
	}
	return trip, nil
}
