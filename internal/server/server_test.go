package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/lingolens/internal/apptest"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if _, exists := response["classifier"]; exists {
			t.Error("capabilities reported without an app")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_HealthReportsCapabilities(t *testing.T) {
	f := apptest.New(t)
	s := New(Config{App: f.App})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["classifier"] != true {
		t.Errorf("expected classifier true, got %v", response["classifier"])
	}
	if response["language_model"] != true {
		t.Errorf("expected language_model true, got %v", response["language_model"])
	}
	if response["camera_owner"] != "" {
		t.Errorf("expected no camera owner, got %v", response["camera_owner"])
	}
}

func TestServer_StreamRequiresCamera(t *testing.T) {
	f := apptest.New(t)
	s := New(Config{App: f.App})

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestServer_Routes(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>LingoLens</body></html>"
	script := "startScan();"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0644); err != nil {
		t.Fatalf("failed to write index.html: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte(script), 0644); err != nil {
		t.Fatalf("failed to write app.js: %v", err)
	}

	f := apptest.New(t)

	tests := []struct {
		name     string
		config   Config
		path     string
		wantCode int
		wantBody string
	}{
		{name: "front-end index", config: Config{StaticDir: dir}, path: "/", wantCode: http.StatusOK, wantBody: index},
		{name: "front-end asset", config: Config{StaticDir: dir}, path: "/app.js", wantCode: http.StatusOK, wantBody: script},
		{name: "missing asset", config: Config{StaticDir: dir}, path: "/missing.css", wantCode: http.StatusNotFound},
		{name: "no front-end", config: Config{}, path: "/", wantCode: http.StatusNotFound},
		{name: "unknown api route", config: Config{}, path: "/api/nonexistent", wantCode: http.StatusNotFound},
		{name: "api wins over front-end", config: Config{StaticDir: dir, App: f.App}, path: "/api/languages", wantCode: http.StatusOK},
		{name: "api absent without app", config: Config{StaticDir: dir}, path: "/api/languages", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.config)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("GET %s: expected status %d, got %d", tt.path, tt.wantCode, rec.Code)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("GET %s: expected body %q, got %q", tt.path, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestNew(t *testing.T) {
	cfg := Config{StaticDir: "/some/path"}
	s := New(cfg)

	if s.config.StaticDir != cfg.StaticDir {
		t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
	}

	var _ http.Handler = s
}
