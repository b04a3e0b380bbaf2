package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skypath/pkg/config"
	"skypath/pkg/logger"
	"skypath/pkg/passhash"
	"skypath/pkg/ratelimit"
	"skypath/services/planner-svc/internal/delay"
	"skypath/services/planner-svc/internal/render"
	"skypath/services/planner-svc/internal/repository"
	"skypath/services/planner-svc/internal/schedule"
	"skypath/services/planner-svc/internal/service"
)

func init() {
	logger.Init("error")
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	handler http.Handler
	repos   *repository.Repositories
}

func newTestEnv(t *testing.T, mutate func(*config.Config, *Deps)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		App:     config.AppConfig{Name: "planner-svc", Version: "test"},
		Swagger: config.SwaggerConfig{Enabled: true},
		Planner: config.PlannerConfig{SaveTrips: true, TripListLimit: 10},
	}

	model, err := delay.Train(delay.DefaultSamples(), delay.DefaultRidge)
	require.NoError(t, err)

	repos := repository.NewMemoryRepositories()
	planner, err := service.NewPlanner(schedule.Sample(), service.Deps{
		Estimator: delay.NewEstimator(model, nil),
		Trips:     repos.Trips,
	}, service.OptionsFromConfig(&cfg.Planner))
	require.NoError(t, err)

	tokens := passhash.NewJWTManager(&passhash.JWTConfig{
		SecretKey:          "test-secret",
		AccessTokenExpiry:  time.Minute,
		RefreshTokenExpiry: time.Hour,
		Issuer:             "skypath-test",
	})
	params := &passhash.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	deps := Deps{
		Planner:  planner,
		Auth:     service.NewAuthService(repos.Users, tokens, params, 6, nil),
		Renderer: render.NewService(render.Options{}, nil),
		Ready:    repos,
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}

	return &testEnv{handler: New(cfg, deps).Router(), repos: repos}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.7:4242"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "secret123"}
	rec := e.do(t, http.MethodPost, "/api/v1/auth/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/v1/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authResponse](t, rec).AccessToken
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	health := decode[healthResponse](t, rec)
	assert.Equal(t, statusHealthy, health.Status)
	assert.Equal(t, "planner-svc", health.Service)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[readyResponse](t, rec).Ready)

	down := newTestEnv(t, func(_ *config.Config, d *Deps) {
		d.Ready = pinger{err: errors.New("connection refused")}
	})
	rec = down.do(t, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, decode[readyResponse](t, rec).Ready)
}

func TestPlan_Anonymous(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/routes",
		planRequest{Source: "A", Destination: "E", StartTime: 2}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Found            bool    `json:"found"`
		Route            string  `json:"route"`
		ArrivalTime      float64 `json:"arrival_time"`
		ArrivalClock     string  `json:"arrival_clock"`
		ArrivalWithDelay string  `json:"arrival_with_delay"`
		Saved            bool    `json:"saved"`
		Legs             []struct {
			Flight struct {
				ID string `json:"id"`
			} `json:"flight"`
			Delayed bool `json:"delayed"`
		} `json:"legs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.True(t, got.Found)
	assert.Equal(t, "A → B → D → E", got.Route)
	assert.Equal(t, 14.0, got.ArrivalTime)
	assert.Equal(t, "14:00", got.ArrivalClock)
	assert.Equal(t, "14:30", got.ArrivalWithDelay)
	assert.False(t, got.Saved)
	require.Len(t, got.Legs, 3)
	assert.Equal(t, "FN-101", got.Legs[0].Flight.ID)
	assert.True(t, got.Legs[1].Delayed)
}

func TestPlan_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
		field  string
	}{
		{"no route", planRequest{Source: "E", Destination: "A", StartTime: 0}, http.StatusNotFound, "NO_ROUTE", ""},
		{"unknown airport", planRequest{Source: "Z", Destination: "A", StartTime: 2}, http.StatusUnprocessableEntity, "UNKNOWN_VERTEX", ""},
		{"same airport", planRequest{Source: "A", Destination: "A", StartTime: 2}, http.StatusUnprocessableEntity, "SOURCE_EQUALS_DESTINATION", ""},
		{"fractional hour", planRequest{Source: "A", Destination: "E", StartTime: 2.5}, http.StatusBadRequest, "INVALID_START_TIME", "start_time"},
		{"hour out of range", planRequest{Source: "A", Destination: "E", StartTime: 24}, http.StatusBadRequest, "INVALID_START_TIME", "start_time"},
		{"malformed body", `{"source":`, http.StatusBadRequest, "INVALID_ARGUMENT", ""},
		{"unknown field", `{"source":"A","destination":"E","start_time":2,"seats":3}`, http.StatusBadRequest, "INVALID_ARGUMENT", ""},
		{"empty body", "", http.StatusBadRequest, "INVALID_ARGUMENT", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/routes", tt.body, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[errorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.field != "" {
				assert.Equal(t, tt.field, resp.Error.Field)
			}
		})
	}
}

func TestAuthenticatedPlanSavesTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/v1/routes",
		planRequest{Source: "A", Destination: "E", StartTime: 2}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var planned struct {
		Saved  bool   `json:"saved"`
		TripID string `json:"trip_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &planned))
	assert.True(t, planned.Saved)
	require.NotEmpty(t, planned.TripID)

	rec = env.do(t, http.MethodGet, "/api/v1/trips", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[tripsResponse](t, rec)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, planned.TripID, list.Trips[0].ID)
	assert.Equal(t, "A → B → D → E", list.Trips[0].Itinerary)
	assert.Equal(t, []string{"FN-101", "FN-103", "FN-107"}, list.Trips[0].FlightIDs)
	assert.Equal(t, "14:00", list.Trips[0].ArrivalClock)

	rec = env.do(t, http.MethodGet, "/api/v1/trips/"+planned.TripID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trip := decode[tripView](t, rec)
	require.Len(t, trip.Legs, 3)
	assert.Equal(t, "FN-103", trip.Legs[1].FlightID)
	assert.Equal(t, "12:00", trip.Legs[1].Departure)

	// чужая поездка не видна
	other := env.login(t, "bob")
	rec = env.do(t, http.MethodGet, "/api/v1/trips/"+planned.TripID, nil, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/trips?limit=0", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrips_RequireAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/trips", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/trips", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode[errorResponse](t, rec).Error.Code)
}

func TestAuth_Endpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	creds := map[string]string{"username": "carol", "password": "secret123"}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "carol", decode[authResponse](t, rec).User.Username)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/register", creds, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"username": "carol", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	session := decode[authResponse](t, rec)
	assert.Equal(t, "Bearer", session.TokenType)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/refresh",
		refreshRequest{RefreshToken: session.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[authResponse](t, rec).AccessToken)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/refresh",
		refreshRequest{RefreshToken: session.AccessToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/airports", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	airports := decode[airportsResponse](t, rec)
	assert.Equal(t, 5, airports.Total)
	assert.Equal(t, "A", airports.Airports[0].Name)
	assert.Equal(t, 2, airports.Airports[0].Departing)

	rec = env.do(t, http.MethodGet, "/api/v1/flights?origin=B", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var flights struct {
		Flights []struct {
			ID             string `json:"id"`
			DepartureClock string `json:"departure_clock"`
		} `json:"flights"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flights))
	require.Equal(t, 2, flights.Total)
	assert.Equal(t, "FN-103", flights.Flights[0].ID)
	assert.Equal(t, "12:00", flights.Flights[0].DepartureClock)

	rec = env.do(t, http.MethodGet, "/api/v1/flights?origin=B&dest=E", nil, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flights))
	assert.Equal(t, 1, flights.Total)

	rec = env.do(t, http.MethodGet, "/api/v1/flights?dest=Q", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "dest", decode[errorResponse](t, rec).Error.Field)

	rec = env.do(t, http.MethodGet, "/api/v1/network/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		VertexCount int    `json:"vertex_count"`
		FlightCount int    `json:"flight_count"`
		Fingerprint string `json:"fingerprint"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 5, stats.VertexCount)
	assert.Equal(t, 7, stats.FlightCount)
	assert.NotEmpty(t, stats.Fingerprint)
}

func TestRender_Endpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	body := planRequest{Source: "A", Destination: "E", StartTime: 2}

	rec := env.do(t, http.MethodPost, "/api/v1/routes/render?format=md", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `itinerary-A-E.md`)
	assert.Contains(t, rec.Body.String(), "⚠️ delayed")

	rec = env.do(t, http.MethodPost, "/api/v1/routes/render?format=pdf", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = env.do(t, http.MethodPost, "/api/v1/routes/render?format=svg", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "RENDER_FORMAT", decode[errorResponse](t, rec).Error.Code)

	// ненайденный маршрут: документ не строится, граф строится
	missing := planRequest{Source: "E", Destination: "A", StartTime: 0}
	rec = env.do(t, http.MethodPost, "/api/v1/routes/render?format=csv", missing, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/routes/render?format=dot", missing, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/network/render?format=geojson", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "FeatureCollection")

	rec = env.do(t, http.MethodGet, "/api/v1/network/render?format=xlsx", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(&ratelimit.Config{
		Requests:        2,
		Window:          time.Minute,
		Strategy:        "sliding_window",
		CleanupInterval: time.Minute,
	})
	defer limiter.Close()

	env := newTestEnv(t, func(_ *config.Config, d *Deps) { d.Limiter = limiter })

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/api/v1/airports", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/api/v1/airports", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decode[errorResponse](t, rec).Error.Code)

	// health вне /api/v1 не ограничивается
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil, "").Code)
}

func TestRouter_Misc(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, rec).Error.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/airports", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = env.do(t, http.MethodGet, "/swagger/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "swagger-ui"))
}
