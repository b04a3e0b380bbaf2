package swagger

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"skypath/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Title == "" {
		t.Error("Title should not be empty")
	}
	if cfg.BasePath == "" {
		t.Error("BasePath should not be empty")
	}
	if cfg.SpecPath == "" {
		t.Error("SpecPath should not be empty")
	}
}

func TestHandler_ServeHTTP_UI(t *testing.T) {
	spec := []byte(`{"openapi":"3.0.0"}`)
	handler := NewHandler(nil, spec)

	tests := []struct {
		path string
	}{
		{"/swagger/"},
		{"/swagger/index.html"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			contentType := w.Header().Get("Content-Type")
			if contentType != "text/html; charset=utf-8" {
				t.Errorf("Content-Type = %s, want text/html; charset=utf-8", contentType)
			}

			body := w.Body.String()
			if len(body) == 0 {
				t.Error("response body should not be empty")
			}
		})
	}
}

func TestHandler_ServeHTTP_Spec(t *testing.T) {
	spec := []byte(`{"openapi":"3.0.0","info":{"title":"Test"}}`)
	handler := NewHandler(nil, spec)

	specPaths := []string{
		"/swagger/openapi.json",
		"/swagger/swagger.json",
		"/swagger/api.json",
	}

	for _, path := range specPaths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %s, want application/json; charset=utf-8", contentType)
			}

			body := w.Body.Bytes()
			if string(body) != string(spec) {
				t.Error("response should match spec")
			}

			// Check ETag header
			etag := w.Header().Get("ETag")
			if etag == "" {
				t.Error("ETag header should be set")
			}
		})
	}
}

func TestHandler_ServeHTTP_NotFound(t *testing.T) {
	spec := []byte(`{}`)
	handler := NewHandler(nil, spec)

	req := httptest.NewRequest("GET", "/swagger/nonexistent", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandler_ServeHTTP_ETagCaching(t *testing.T) {
	spec := []byte(`{"openapi":"3.0.0"}`)
	handler := NewHandler(nil, spec)

	// First request to get ETag
	req1 := httptest.NewRequest("GET", "/swagger/openapi.json", nil)
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)

	etag := w1.Header().Get("ETag")

	// Second request with If-None-Match
	req2 := httptest.NewRequest("GET", "/swagger/openapi.json", nil)
	req2.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)

	if w2.Code != http.StatusNotModified {
		t.Errorf("status = %d, want %d (Not Modified)", w2.Code, http.StatusNotModified)
	}
}

func TestHandler_CustomConfig(t *testing.T) {
	cfg := &Config{
		Title:                    "Custom API",
		BasePath:                 "/api-docs",
		SpecPath:                 "/spec.json",
		DeepLinking:              false,
		DocExpansion:             "none",
		DefaultModelsExpandDepth: 0,
	}
	spec := []byte(`{}`)
	handler := NewHandler(cfg, spec)

	req := httptest.NewRequest("GET", "/api-docs/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	if !containsString(body, "Custom API") {
		t.Error("response should contain custom title")
	}
}

func TestRegisterRoutes(t *testing.T) {
	router := mux.NewRouter()
	spec := []byte(`{"openapi":"3.0.0"}`)

	RegisterRoutes(router, &Config{BasePath: "/swagger", SpecPath: "/openapi.json"}, spec)

	req := httptest.NewRequest("GET", "/swagger/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("registered route status = %d, want %d", w.Code, http.StatusOK)
	}

	req = httptest.NewRequest("GET", "/swagger", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusMovedPermanently {
		t.Errorf("bare base path status = %d, want redirect", w.Code)
	}
}

func TestSpec_IsValidJSON(t *testing.T) {
	var doc struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(Spec(), &doc); err != nil {
		t.Fatalf("embedded spec is not valid JSON: %v", err)
	}
	if doc.OpenAPI == "" {
		t.Error("openapi version missing")
	}
	for _, p := range []string{"/api/v1/routes", "/api/v1/auth/login", "/api/v1/trips", "/health"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("path %s missing from embedded spec", p)
		}
	}
}

func TestFromConfig(t *testing.T) {
	if got := FromConfig(&config.SwaggerConfig{Title: "Ops"}); got.Title != "Ops" {
		t.Errorf("Title = %s, want Ops", got.Title)
	}
	if got := FromConfig(nil); got.Title != DefaultConfig().Title {
		t.Errorf("nil config should keep default title, got %s", got.Title)
	}
}

func TestHandler_StableETag(t *testing.T) {
	spec := []byte(`{"openapi":"3.0.0"}`)
	if NewHandler(nil, spec).specETag != NewHandler(nil, spec).specETag {
		t.Error("ETag should depend only on the spec content")
	}
}

func containsString(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || containsAt(s, substr))
}

func containsAt(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestHandler_CORS(t *testing.T) {
	spec := []byte(`{}`)
	handler := NewHandler(nil, spec)

	req := httptest.NewRequest("GET", "/swagger/openapi.json", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	cors := w.Header().Get("Access-Control-Allow-Origin")
	if cors != "*" {
		t.Errorf("CORS header = %s, want *", cors)
	}
}

func BenchmarkHandler_ServeSpec(b *testing.B) {
	spec := make([]byte, 100000) // 100KB spec
	handler := NewHandler(nil, spec)

	req := httptest.NewRequest("GET", "/swagger/openapi.json", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		io.Copy(io.Discard, w.Body)
	}
}
