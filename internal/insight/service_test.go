package insight

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/internal/store"
	"github.com/HerbHall/airwatch/internal/testutil"
	"github.com/HerbHall/airwatch/pkg/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeHistory struct {
	readings []models.Reading
	err      error
	panic    bool

	gotSeconds int
	gotRows    int
}

func (f *fakeHistory) Recent(_ context.Context, domain history.Domain, minSecondsBack, maxRows int) ([]models.Reading, error) {
	if f.panic {
		panic("history exploded")
	}
	if domain != history.DomainDashboard {
		return nil, history.ErrUnknownDomain
	}
	f.gotSeconds, f.gotRows = minSecondsBack, maxRows
	return f.readings, f.err
}

type fakeSettings struct {
	s   *models.UserSettings
	err error
}

func (f fakeSettings) Latest(context.Context) (*models.UserSettings, error) { return f.s, f.err }

func newService(h HistorySource, s SettingsSource) *Service {
	return NewService(DefaultConfig(), aqi.IndoorTable(), h, s, zap.NewNop())
}

// line returns n readings one minute apart following 10 + 2*(t - t0) with t in seconds.
func line(n int) []models.Reading {
	out := make([]models.Reading, n)
	for i := range out {
		sec := float64(i * 60)
		out[i] = models.Reading{
			Timestamp: testutil.Epoch.Add(time.Duration(i) * time.Minute),
			Values:    models.Values{models.SensorAQI: 10 + 0.02*sec},
		}
	}
	return out
}

func decode(t *testing.T, res Result) map[string]any {
	t.Helper()
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return m
}

func TestForecastFor_InsufficientHistory(t *testing.T) {
	svc := newService(&fakeHistory{readings: line(2)}, nil)

	res := svc.ForecastFor(context.Background(), 30)
	if res.Kind != KindInsufficient {
		t.Fatalf("Kind = %q, want %q", res.Kind, KindInsufficient)
	}

	m := decode(t, res)
	if m["ok"] != false || m["reason"] != ReasonNotEnoughHistory {
		t.Errorf("body = %v", m)
	}
	if m["history_count"] != 2.0 {
		t.Errorf("history_count = %v, want 2", m["history_count"])
	}
	if pts, ok := m["forecast"].([]any); !ok || len(pts) != 0 {
		t.Errorf("forecast = %v, want []", m["forecast"])
	}
}

func TestForecastFor_DegenerateIsInsufficient(t *testing.T) {
	same := []models.Reading{
		{Timestamp: testutil.Epoch, Values: models.Values{models.SensorAQI: 10}},
		{Timestamp: testutil.Epoch, Values: models.Values{models.SensorAQI: 20}},
		{Timestamp: testutil.Epoch, Values: models.Values{models.SensorAQI: 30}},
	}
	svc := newService(&fakeHistory{readings: same}, nil)

	if res := svc.ForecastFor(context.Background(), 10); res.Kind != KindInsufficient {
		t.Errorf("Kind = %q, want %q", res.Kind, KindInsufficient)
	}
}

func TestForecastFor_NoiselessLine(t *testing.T) {
	svc := newService(&fakeHistory{readings: line(10)}, nil)

	res := svc.ForecastFor(context.Background(), 5)
	if res.Kind != KindOK {
		t.Fatalf("Kind = %q (%s), want ok", res.Kind, res.Err)
	}

	m := decode(t, res)
	if m["ok"] != true || m["margin_method"] != "rmse_over_sqrt_n" {
		t.Errorf("body = %v", m)
	}
	if m["forecast_count"] != 5.0 || m["horizon_minutes"] != 5.0 || m["history_count"] != 10.0 {
		t.Errorf("counts = %v/%v/%v", m["forecast_count"], m["horizon_minutes"], m["history_count"])
	}
	if rmse := m["rmse"].(float64); rmse > 1e-9 {
		t.Errorf("rmse = %v, want ~0", rmse)
	}

	last := testutil.Epoch.Add(9 * time.Minute)
	for i, p := range res.Forecast.Points {
		wantTS := last.Add(time.Duration(i+1) * time.Minute)
		if !p.Timestamp.Equal(wantTS) {
			t.Errorf("point %d ts = %v, want %v", i, p.Timestamp, wantTS)
		}
		want := 10 + 0.02*wantTS.Sub(testutil.Epoch).Seconds()
		if math.Abs(p.PredictedAQI-want) > 1e-6 {
			t.Errorf("point %d aqi = %v, want %v", i, p.PredictedAQI, want)
		}
	}
}

func TestForecastFor_LookbackFollowsHorizon(t *testing.T) {
	tests := []struct {
		horizon int
		want    time.Duration
	}{
		{15, time.Hour},
		{60, 3 * time.Hour},
		{120, 6 * time.Hour},
	}
	for _, tt := range tests {
		h := &fakeHistory{readings: line(5)}
		newService(h, nil).ForecastFor(context.Background(), tt.horizon)
		if h.gotSeconds != int(tt.want.Seconds()) {
			t.Errorf("horizon %d: lookback = %ds, want %v", tt.horizon, h.gotSeconds, tt.want)
		}
		if h.gotRows != history.DefaultMaxRows {
			t.Errorf("maxRows = %d, want %d", h.gotRows, history.DefaultMaxRows)
		}
	}
}

func TestForecast_HorizonFromSettings(t *testing.T) {
	horizon := 12
	h := &fakeHistory{readings: line(5)}
	svc := newService(h, fakeSettings{s: &models.UserSettings{ForecastHorizonMinutes: &horizon}})

	res := svc.Forecast(context.Background())
	if res.HorizonMinutes != 12 {
		t.Errorf("HorizonMinutes = %d, want 12", res.HorizonMinutes)
	}
}

func TestForecast_SettingsUnavailableUsesDefault(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(DefaultConfig(), aqi.IndoorTable(), &fakeHistory{readings: line(5)},
		fakeSettings{err: errors.New("db locked")}, zap.New(core))

	res := svc.Forecast(context.Background())
	if res.HorizonMinutes != 60 {
		t.Errorf("HorizonMinutes = %d, want 60", res.HorizonMinutes)
	}
	if logs.FilterMessage("settings unavailable, using default horizon").Len() != 1 {
		t.Error("expected a warning about unavailable settings")
	}
}

func TestForecastFor_HistoryError(t *testing.T) {
	svc := newService(&fakeHistory{err: errors.New("disk I/O error")}, nil)

	res := svc.ForecastFor(context.Background(), 30)
	if res.Kind != KindError {
		t.Fatalf("Kind = %q, want error", res.Kind)
	}
	m := decode(t, res)
	if m["ok"] != false || m["error"] != "disk I/O error" {
		t.Errorf("body = %v", m)
	}
	if pts, ok := m["forecast"].([]any); !ok || len(pts) != 0 {
		t.Errorf("forecast = %v, want []", m["forecast"])
	}
}

func TestForecastFor_RecoversFromPanic(t *testing.T) {
	svc := newService(&fakeHistory{panic: true}, nil)

	res := svc.ForecastFor(context.Background(), 30)
	if res.Kind != KindError || res.Err != "history exploded" {
		t.Errorf("res = %+v, want error variant", res)
	}
}

func TestForecastFor_Idempotent(t *testing.T) {
	svc := newService(&fakeHistory{readings: line(8)}, nil)
	ctx := context.Background()

	a := svc.ForecastFor(ctx, 20)
	b := svc.ForecastFor(ctx, 20)
	if !reflect.DeepEqual(a, b) {
		t.Error("two forecasts over the same history differ")
	}
}

func TestForecastFor_AgainstSQLiteHistory(t *testing.T) {
	db := testutil.OpenStore(t, map[string][]store.Migration{"history": history.Migrations()})
	hs := history.NewStore(db.DB())
	hs.SetClock(func() time.Time { return testutil.Epoch })

	ctx := context.Background()
	for i := 5; i >= 1; i-- {
		m := testutil.NewMetrics(
			testutil.WithTimestamp(testutil.Epoch.Add(-time.Duration(i)*time.Minute)),
			testutil.WithAQI(float64(50+i)),
		)
		if err := hs.Append(ctx, &m); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	res := newService(hs, nil).ForecastFor(ctx, 10)
	if res.Kind != KindOK {
		t.Fatalf("Kind = %q (%s), want ok", res.Kind, res.Err)
	}
	if res.HistoryCount != 5 || len(res.Forecast.Points) != 10 {
		t.Errorf("history_count = %d, points = %d", res.HistoryCount, len(res.Forecast.Points))
	}
	if res.Forecast.Fit.Slope >= 0 {
		t.Errorf("slope = %v, want falling", res.Forecast.Fit.Slope)
	}
}
