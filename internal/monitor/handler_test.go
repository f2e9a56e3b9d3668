package monitor_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/HerbHall/airwatch/internal/alert"
	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/internal/monitor"
	"github.com/HerbHall/airwatch/internal/store"
	"github.com/HerbHall/airwatch/internal/testutil"
	"github.com/HerbHall/airwatch/pkg/models"
	"go.uber.org/zap"
)

type noopEvaluator struct{}

func (noopEvaluator) Evaluate(context.Context, []models.Reading) alert.Outcome {
	return alert.Outcome{Decision: alert.DecisionNoSpike, CooldownMinutes: 30}
}

func setupHandlerEnv(t *testing.T) (*history.Store, *http.ServeMux) {
	t.Helper()

	db := testutil.OpenStore(t, map[string][]store.Migration{"history": history.Migrations()})
	hs := history.NewStore(db.DB())
	hs.SetClock(func() time.Time { return testutil.Epoch })

	p := monitor.NewPipeline(alert.DefaultConfig(), aqi.NewComputer(aqi.IndoorTable()), hs, noopEvaluator{}, nil, zap.NewNop())
	mux := http.NewServeMux()
	monitor.NewHandler(p, hs, zap.NewNop()).RegisterRoutes(mux)
	return hs, mux
}

func doRequest(mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func seed(t *testing.T, hs *history.Store, agos ...time.Duration) {
	t.Helper()
	for i, ago := range agos {
		m := testutil.NewMetrics(
			testutil.WithTimestamp(testutil.Epoch.Add(-ago)),
			testutil.WithAQI(float64(10*(i+1))),
		)
		if err := hs.Append(context.Background(), &m); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

func TestHandleIngest(t *testing.T) {
	_, mux := setupHandlerEnv(t)

	w := doRequest(mux, "POST", "/api/v1/readings", map[string]any{
		"ts":                  testutil.Epoch.Unix(),
		"temperature_c":       22.5,
		"humidity_percent":    40,
		"concentration_ug_m3": 30,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp monitor.IngestResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK {
		t.Error("ok = false")
	}
	if resp.Reading.PM25 == nil || *resp.Reading.PM25 != 15 {
		t.Errorf("pm25 = %v, want 15", resp.Reading.PM25)
	}
	if resp.Reading.TS != testutil.Epoch.Unix() {
		t.Errorf("ts = %d, want %d", resp.Reading.TS, testutil.Epoch.Unix())
	}
	if resp.Alert.Decision != alert.DecisionNoSpike {
		t.Errorf("alert decision = %q", resp.Alert.Decision)
	}
}

func TestHandleIngest_BadBody(t *testing.T) {
	_, mux := setupHandlerEnv(t)

	w := doRequest(mux, "POST", "/api/v1/readings", `{"temperature_c":"warm"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleDashboard(t *testing.T) {
	hs, mux := setupHandlerEnv(t)

	if w := doRequest(mux, "GET", "/api/v1/dashboard", nil); w.Code != http.StatusNotFound {
		t.Errorf("empty store status = %d, want %d", w.Code, http.StatusNotFound)
	}

	seed(t, hs, 2*time.Minute, time.Minute)

	w := doRequest(mux, "GET", "/api/v1/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"aqi", "flame", "humidity", "pm10", "pm25", "smoke", "temperature", "toxic", "voc", "ts"} {
		if _, ok := body[key]; !ok {
			t.Errorf("dashboard missing %q", key)
		}
	}
	if body["aqi"] != 20.0 {
		t.Errorf("aqi = %v, want 20 (latest)", body["aqi"])
	}
}

func TestHandleHistoryQuery(t *testing.T) {
	hs, mux := setupHandlerEnv(t)
	seed(t, hs, 3*time.Hour, 2*time.Hour, time.Hour)

	w := doRequest(mux, "POST", "/api/v1/history/query", map[string]any{
		"start": testutil.Epoch.Add(-2 * time.Hour).Unix(),
		"end":   testutil.Epoch.Unix(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp monitor.HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rows := resp.Data.DashboardReadings
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].AQI != 20 || rows[1].AQI != 30 {
		t.Errorf("aqi = %v, %v, want 20, 30", rows[0].AQI, rows[1].AQI)
	}
}

func TestHandleHistoryQuery_Invalid(t *testing.T) {
	_, mux := setupHandlerEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"start":`},
		{"missing end", `{"start":1}`},
		{"reversed", `{"start":10,"end":5}`},
		{"non numeric", `{"start":"yesterday","end":5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(mux, "POST", "/api/v1/history/query", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHandleHistoryDownload(t *testing.T) {
	hs, mux := setupHandlerEnv(t)
	seed(t, hs, 2*time.Minute, time.Minute)

	w := doRequest(mux, "GET", "/api/v1/history/download", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=dashboard_history.csv" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("records = %d, want header + 2", len(records))
	}
}

func TestHandleHistoryDownload_UnsupportedFormat(t *testing.T) {
	_, mux := setupHandlerEnv(t)

	w := doRequest(mux, "GET", "/api/v1/history/download?fmt=xlsx", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
