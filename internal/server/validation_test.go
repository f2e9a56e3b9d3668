package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/internal/monitor"
	"github.com/HerbHall/airwatch/internal/settings"
	"github.com/HerbHall/airwatch/internal/store"
	"github.com/HerbHall/airwatch/internal/testutil"
	"go.uber.org/zap"
)

// testAPIEnv builds the full middleware chain over the settings and history
// handlers backed by an in-memory database.
func testAPIEnv(t *testing.T) http.Handler {
	t.Helper()

	db := testutil.OpenStore(t, map[string][]store.Migration{
		"history":  history.Migrations(),
		"settings": settings.Migrations(),
	})
	logger := zap.NewNop()

	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 64 << 10
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 1000
	srv := New(cfg, logger, nil, nil,
		settings.NewHandler(settings.NewStore(db.DB()), logger),
		monitor.NewHandler(nil, history.NewStore(db.DB()), logger),
	)
	return srv.Handler()
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Malformed JSON Tests
// =============================================================================

func TestMalformedJSON(t *testing.T) {
	h := testAPIEnv(t)

	tests := []struct {
		name     string
		endpoint string
		body     string
		wantCode int
	}{
		{"settings - truncated JSON", "/api/v1/settings", `{"email": "me@example.com", "notifications":`, http.StatusBadRequest},
		{"settings - invalid syntax", "/api/v1/settings", `{email: me}`, http.StatusBadRequest},
		{"settings - array instead of object", "/api/v1/settings", `["me@example.com"]`, http.StatusBadRequest},
		{"settings - string instead of object", "/api/v1/settings", `"just a string"`, http.StatusBadRequest},
		{"settings - empty body", "/api/v1/settings", ``, http.StatusBadRequest},
		{"history - truncated JSON", "/api/v1/history/query", `{"start": 1`, http.StatusBadRequest},
		{"history - null body", "/api/v1/history/query", `null`, http.StatusBadRequest},
		{"history - not json at all", "/api/v1/history/query", `not json at all`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(h, tt.endpoint, tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

// =============================================================================
// Type Coercion and Boundary Tests
// =============================================================================

func TestTypeCoercion(t *testing.T) {
	h := testAPIEnv(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"numeric string duration", `{"forecast_duration": "45"}`, http.StatusOK},
		{"float duration truncates", `{"forecast_duration": 45.9}`, http.StatusOK},
		{"null refresh rate", `{"refresh_rate": null}`, http.StatusOK},
		{"boolean duration", `{"forecast_duration": true}`, http.StatusBadRequest},
		{"object duration", `{"forecast_duration": {"minutes": 5}}`, http.StatusBadRequest},
		{"notifications as string", `{"notifications": "yes"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(h, "/api/v1/settings", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestHistoryRangeBoundaries(t *testing.T) {
	h := testAPIEnv(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"missing end", `{"start": 0}`, http.StatusBadRequest},
		{"end before start", `{"start": 100, "end": 99}`, http.StatusBadRequest},
		{"single instant", `{"start": 100, "end": 100}`, http.StatusOK},
		{"negative start", `{"start": -1, "end": 100}`, http.StatusOK},
		{"int64 overflow", `{"start": 0, "end": 99999999999999999999}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(h, "/api/v1/history/query", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

// =============================================================================
// Injection Payload Tests
// =============================================================================

func TestInjectionPayloadsRejectedAsEmail(t *testing.T) {
	h := testAPIEnv(t)

	payloads := []string{
		`' OR '1'='1`,
		`me@example.com'; DROP TABLE user_settings; --`,
		`<script>alert(1)</script>`,
		`"><img src=x onerror=alert(1)>`,
	}

	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"email": p})
			w := post(h, "/api/v1/settings", string(body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}

	// The table must still exist and be readable.
	req := httptest.NewRequest("GET", "/api/v1/settings/latest", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("latest after injection attempts: status = %d", w.Code)
	}
}

// =============================================================================
// Oversized Payload Tests
// =============================================================================

func TestOversizedPayloads(t *testing.T) {
	h := testAPIEnv(t)

	tests := []struct {
		name     string
		endpoint string
		size     int
	}{
		{"settings 1MB", "/api/v1/settings", 1 << 20},
		{"history 256KB", "/api/v1/history/query", 256 << 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"email": "` + strings.Repeat("a", tt.size) + `@example.com"}`
			w := post(h, tt.endpoint, body)
			if w.Code != http.StatusRequestEntityTooLarge {
				t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
			}
		})
	}
}

// =============================================================================
// Error Response Format
// =============================================================================

func TestErrorResponseFormat(t *testing.T) {
	h := testAPIEnv(t)

	w := post(h, "/api/v1/history/query", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	body, _ := io.ReadAll(w.Body)
	if !json.Valid(body) {
		t.Errorf("error response is not valid JSON: %s", body)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("error responses should carry X-Request-ID")
	}
}
