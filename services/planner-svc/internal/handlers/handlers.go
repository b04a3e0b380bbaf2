// Package handlers exposes the planner over a JSON HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"skypath/pkg/apperror"
	"skypath/pkg/audit"
	"skypath/pkg/config"
	"skypath/pkg/logger"
	"skypath/pkg/metrics"
	"skypath/pkg/ratelimit"
	"skypath/pkg/swagger"
	"skypath/pkg/telemetry"
	"skypath/services/planner-svc/internal/middleware"
	"skypath/services/planner-svc/internal/render"
	"skypath/services/planner-svc/internal/service"
)

// ReadinessChecker проверяет зависимости сервиса
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// Deps зависимости обработчиков
type Deps struct {
	Planner  *service.Planner
	Auth     *service.AuthService
	Renderer *render.Service
	Ready    ReadinessChecker // nil - всегда готов

	Metrics *metrics.Metrics
	Tracker *metrics.RequestTracker
	Limiter ratelimit.Limiter // nil - без ограничения
	Audit   audit.Logger      // nil - без аудита HTTP
}

// Handler корневой обработчик API
type Handler struct {
	cfg       *config.Config
	deps      Deps
	startedAt time.Time

	// Sub-handlers
	health  *HealthHandler
	auth    *AuthHandler
	catalog *CatalogHandler
	routes  *RoutesHandler
	trips   *TripsHandler
}

// New создаёт обработчик
func New(cfg *config.Config, deps Deps) *Handler {
	h := &Handler{
		cfg:       cfg,
		deps:      deps,
		startedAt: time.Now(),
	}

	h.health = NewHealthHandler(cfg, deps.Ready, h.startedAt)
	h.auth = NewAuthHandler(deps.Auth)
	h.catalog = NewCatalogHandler(deps.Planner, deps.Renderer)
	h.routes = NewRoutesHandler(deps.Planner, deps.Renderer)
	h.trips = NewTripsHandler(deps.Planner, cfg.Planner.TripListLimit)

	return h
}

// Router собирает gorilla роутер со всеми маршрутами и middleware.
// RequestID, Recovery и CORS оборачивают роутер снаружи, чтобы
// работать и для preflight запросов без маршрута.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, apperror.New(apperror.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: errorPayload{
			Code:    "METHOD_NOT_ALLOWED",
			Message: "method not allowed",
		}})
	})

	r.HandleFunc("/health", h.health.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.health.Ready).Methods(http.MethodGet)

	var tokens middleware.TokenValidator
	if h.deps.Auth != nil {
		tokens = h.deps.Auth.Tokens()
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(
		mux.MiddlewareFunc(middleware.Logging()),
		mux.MiddlewareFunc(middleware.Metrics(h.deps.Metrics, h.deps.Tracker)),
		mux.MiddlewareFunc(telemetry.HTTPMiddleware(middleware.RouteName)),
	)
	if tokens != nil {
		api.Use(mux.MiddlewareFunc(middleware.OptionalAuth(tokens, h.deps.Metrics)))
	}
	// лимит по пользователю, поэтому после OptionalAuth
	if h.deps.Limiter != nil {
		api.Use(mux.MiddlewareFunc(ratelimit.Middleware(h.deps.Limiter, ratelimit.MiddlewareOptions{
			KeyExtractor: ratelimit.UserKey(userIDString),
			OnLimited: func(req *http.Request, _ string) {
				h.deps.Metrics.RecordRateLimited(middleware.RouteName(req))
			},
			Reject: func(w http.ResponseWriter, req *http.Request, _ *ratelimit.LimitInfo) {
				writeError(w, req, apperror.New(apperror.CodeRateLimited, "rate limit exceeded"))
			},
		})))
	}
	if mw := middleware.Audit(&middleware.AuditConfig{
		ServiceName: h.cfg.App.Name,
		Logger:      h.deps.Audit,
	}); mw != nil {
		api.Use(mux.MiddlewareFunc(mw))
	}

	if h.deps.Auth != nil {
		api.HandleFunc("/auth/register", h.auth.Register).Methods(http.MethodPost)
		api.HandleFunc("/auth/login", h.auth.Login).Methods(http.MethodPost)
		api.HandleFunc("/auth/refresh", h.auth.Refresh).Methods(http.MethodPost)
	}

	api.HandleFunc("/airports", h.catalog.Airports).Methods(http.MethodGet)
	api.HandleFunc("/flights", h.catalog.Flights).Methods(http.MethodGet)
	api.HandleFunc("/network/stats", h.catalog.Stats).Methods(http.MethodGet)
	api.HandleFunc("/network/render", h.catalog.Render).Methods(http.MethodGet)

	api.HandleFunc("/routes", h.routes.Plan).Methods(http.MethodPost)
	api.HandleFunc("/routes/render", h.routes.Render).Methods(http.MethodPost)

	api.Handle("/trips", middleware.RequireAuth(http.HandlerFunc(h.trips.List))).Methods(http.MethodGet)
	api.Handle("/trips/{id}", middleware.RequireAuth(http.HandlerFunc(h.trips.Get))).Methods(http.MethodGet)

	if h.cfg.Swagger.Enabled {
		swagger.RegisterRoutes(r, swagger.FromConfig(&h.cfg.Swagger), swagger.Spec())
	}

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.CORS(h.cfg.HTTP.CORS),
	)(r)
}

func userIDString(ctx context.Context) (string, bool) {
	id, ok := middleware.GetUserID(ctx)
	if !ok {
		return "", false
	}
	return strconv.FormatInt(id, 10), true
}

// ==================== Responses ====================

type errorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debug("Failed to write response", "error", err)
	}
}

// writeError пишет ошибку в формате API. Внутренние ошибки не раскрываются клиенту.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.HTTPStatus(err)

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap(err, apperror.CodeInternal, "internal error")
	}

	payload := errorPayload{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Field:   appErr.Field,
		Details: appErr.Details,
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed",
			"route", middleware.RouteName(r),
			"code", payload.Code,
			"error", err,
		)
		if appErr.Code == apperror.CodeInternal {
			payload.Message = "internal error"
		}
	}

	writeJSON(w, status, errorResponse{Error: payload})
}

// decodeJSON читает тело запроса, неизвестные поля отклоняются
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.New(apperror.CodeInvalidArgument, "request body is empty")
		}
		return apperror.Wrap(err, apperror.CodeInvalidArgument, "invalid request body: "+err.Error())
	}
	return nil
}
