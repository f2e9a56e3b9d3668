package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/airwatch/internal/store"
	"github.com/HerbHall/airwatch/pkg/models"
)

// Epoch is a fixed reference time for fixtures.
var Epoch = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// OpenStore opens an in-memory database and applies the named migration
// sets. The store is closed when the test ends.
func OpenStore(t *testing.T, sets map[string][]store.Migration) *store.Store {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for component, migrations := range sets {
		if err := db.Migrate(context.Background(), component, migrations); err != nil {
			t.Fatalf("migrate %s: %v", component, err)
		}
	}
	return db
}

// NewMetrics returns a Good-quality metrics record at Epoch. Override fields
// with the With* options.
func NewMetrics(opts ...func(*models.Metrics)) models.Metrics {
	m := models.Metrics{
		Timestamp:       Epoch,
		TemperatureC:    ptr(21.5),
		HumidityPercent: ptr(45),
		PM25:            ptr(8),
		PM25Raw:         ptr(16),
		PM10:            ptr(9.6),
		ToxicIndex:      0,
		FlammableIndex:  0,
		SmokeIndex:      0,
		VOCIndex:        12,
		PM25AQI:         16.67,
		PM10AQI:         20,
		AQI:             20,
		Status:          models.StatusGood,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// WithTimestamp sets the record time.
func WithTimestamp(ts time.Time) func(*models.Metrics) {
	return func(m *models.Metrics) { m.Timestamp = ts }
}

// WithAQI sets the combined AQI.
func WithAQI(v float64) func(*models.Metrics) {
	return func(m *models.Metrics) { m.AQI = v }
}

// WithPM25 sets calibrated PM2.5.
func WithPM25(v float64) func(*models.Metrics) {
	return func(m *models.Metrics) { m.PM25 = &v }
}

// WithoutClimate clears temperature and humidity.
func WithoutClimate() func(*models.Metrics) {
	return func(m *models.Metrics) {
		m.TemperatureC = nil
		m.HumidityPercent = nil
	}
}

// AQISeries returns readings carrying only an AQI value, one per step
// starting at start.
func AQISeries(start time.Time, step time.Duration, values ...float64) []models.Reading {
	out := make([]models.Reading, len(values))
	for i, v := range values {
		out[i] = models.Reading{
			Timestamp: start.Add(time.Duration(i) * step),
			Values:    models.Values{models.SensorAQI: v},
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }
