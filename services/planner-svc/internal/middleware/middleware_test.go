package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skypath/pkg/audit"
	"skypath/pkg/config"
	"skypath/pkg/logger"
	"skypath/pkg/metrics"
	"skypath/pkg/passhash"
)

func init() {
	logger.Init("error")
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func newRouter(mws ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/routes", okHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/trips/{id}", okHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", okHandler).Methods(http.MethodGet)
	r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	r.HandleFunc("/denied", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	for _, mw := range mws {
		r.Use(mw)
	}
	return r
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("outer"), nil, mark("inner"))(http.HandlerFunc(okHandler))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery()(newRouter())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouteName(t *testing.T) {
	var got string
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/trips/{id}", func(_ http.ResponseWriter, r *http.Request) {
		got = RouteName(r)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/trips/abc", nil))
	assert.Equal(t, "/api/v1/trips/{id}", got)

	assert.Equal(t, "unmatched", RouteName(httptest.NewRequest(http.MethodGet, "/x", nil)))
}

func TestLogging_PassesThrough(t *testing.T) {
	r := newRouter(mux.MiddlewareFunc(Logging()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/routes", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry(), "test")
	tracker := metrics.NewRequestTracker(m.HTTPRequestsInFlight)
	r := newRouter(mux.MiddlewareFunc(Metrics(m, tracker)))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/trips/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/trips/2", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/trips/{id}", "200")))
	assert.Equal(t, 0, tracker.Active("/api/v1/trips/{id}"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight))
}

func TestCORS(t *testing.T) {
	cfg := config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         600,
	}
	h := CORS(cfg)(http.HandlerFunc(okHandler))

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/routes", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disabled", func(t *testing.T) {
		assert.Nil(t, CORS(config.CORSConfig{}))
	})
}

func TestPrepareAllowedHeaders_Wildcard(t *testing.T) {
	got := prepareAllowedHeaders([]string{"*"})
	assert.Contains(t, got, "Authorization")
	assert.NotContains(t, got, "*")
}

type stubValidator struct {
	claims *passhash.Claims
	err    error
}

func (s stubValidator) ValidateAccessToken(string) (*passhash.Claims, error) {
	return s.claims, s.err
}

func TestOptionalAuth(t *testing.T) {
	var user User
	var authed bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, authed = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	valid := stubValidator{claims: &passhash.Claims{UserID: "7", Username: "alice"}}

	tests := []struct {
		name       string
		validator  TokenValidator
		header     string
		wantStatus int
		wantAuthed bool
	}{
		{"anonymous", valid, "", http.StatusOK, false},
		{"valid token", valid, "Bearer abc", http.StatusOK, true},
		{"lowercase scheme", valid, "bearer abc", http.StatusOK, true},
		{"malformed header", valid, "Token abc", http.StatusUnauthorized, false},
		{"invalid token", stubValidator{err: errors.New("expired")}, "Bearer abc", http.StatusUnauthorized, false},
		{"bad subject", stubValidator{claims: &passhash.Claims{UserID: "x"}}, "Bearer abc", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, authed = User{}, false
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			OptionalAuth(tt.validator, nil)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAuthed, authed)
			if tt.wantAuthed {
				assert.Equal(t, User{ID: 7, Username: "alice"}, user)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(okHandler))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHENTICATED")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	req = req.WithContext(WithUser(req.Context(), User{ID: 1}))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAudit(t *testing.T) {
	mem := audit.NewMemoryLogger(100)
	mw := Audit(&AuditConfig{
		ServiceName:  "planner",
		Logger:       mem,
		ExcludeRoute: map[string]bool{"/health": true},
	})
	r := newRouter(mux.MiddlewareFunc(mw))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/routes", strings.NewReader("{}"))
	req = req.WithContext(WithUser(WithRequestID(req.Context(), "rid"), User{ID: 3, Username: "bob"}))
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/denied", nil))

	var entries []*audit.Entry
	require.Eventually(t, func() bool {
		var err error
		entries, err = mem.Query(context.Background(), nil)
		return err == nil && len(entries) == 2
	}, time.Second, 10*time.Millisecond)

	byAction := map[audit.Action]*audit.Entry{}
	for _, e := range entries {
		byAction[e.Action] = e
	}

	plan := byAction[audit.ActionPlan]
	require.NotNil(t, plan)
	assert.Equal(t, audit.OutcomeSuccess, plan.Outcome)
	assert.Equal(t, "3", plan.UserID)
	assert.Equal(t, "rid", plan.RequestID)
	assert.Equal(t, "POST /api/v1/routes", plan.Method)

	denied := byAction[audit.ActionRead]
	require.NotNil(t, denied)
	assert.Equal(t, audit.OutcomeDenied, denied.Outcome)
}

func TestRouteToAction(t *testing.T) {
	assert.Equal(t, audit.ActionLogin, routeToAction(http.MethodPost, "/api/v1/auth/login"))
	assert.Equal(t, audit.ActionRender, routeToAction(http.MethodPost, "/api/v1/routes/render"))
	assert.Equal(t, audit.ActionListTrips, routeToAction(http.MethodGet, "/api/v1/trips/{id}"))
	assert.Equal(t, audit.ActionRead, routeToAction(http.MethodGet, "/api/v1/airports"))
	assert.Nil(t, Audit(nil))
}
