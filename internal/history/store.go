// Package history persists derived readings and serves bounded, oldest-first
// windows of them to the forecast and alert pipeline.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/pkg/models"
)

// DefaultMaxRows caps a Recent window when the caller passes no limit.
const DefaultMaxRows = 2000

// Domain names a reading table that Recent can read from.
type Domain string

// DomainDashboard is the table of derived metrics written on every ingest.
const DomainDashboard Domain = "dashboard_readings"

// ErrUnknownDomain is returned for a Domain the store does not hold.
var ErrUnknownDomain = errors.New("unknown reading domain")

const metricColumns = `ts, temperature_c, humidity_percent, pm2_5_ug_m3, pm2_5_ug_m3_raw,
	pm10_ug_m3, toxic_index, flammable_index, smoke_index, voc_index,
	pm25_aqi, pm10_aqi, aqi, status`

// Store reads and writes the reading tables.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store on db. The history migrations must already be
// applied.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SetClock replaces the time source used to compute window cutoffs.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Append stores one derived metrics record.
func (s *Store) Append(ctx context.Context, m *models.Metrics) error {
	var ts any
	if !m.Timestamp.IsZero() {
		ts = m.Timestamp.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dashboard_readings (`+metricColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts, m.TemperatureC, m.HumidityPercent, m.PM25, m.PM25Raw,
		m.PM10, m.ToxicIndex, m.FlammableIndex, m.SmokeIndex, m.VOCIndex,
		m.PM25AQI, m.PM10AQI, m.AQI, string(m.Status),
	)
	if err != nil {
		return fmt.Errorf("insert dashboard reading: %w", err)
	}
	return nil
}

// AppendRaw stores the physical sample a metrics record was derived from.
func (s *Store) AppendRaw(ctx context.Context, r *aqi.RawSample) error {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_samples (ts, temperature_c, humidity_percent, concentration_ug_m3, mq2_voltage, mq135_voltage)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ts.Unix(), r.TemperatureC, r.HumidityPercent, r.ConcentrationUgM3, r.MQ2Voltage, r.MQ135Voltage,
	)
	if err != nil {
		return fmt.Errorf("insert raw sample: %w", err)
	}
	return nil
}

// Recent returns the newest maxRows readings of domain no older than
// minSecondsBack, ordered oldest first. Rows without a timestamp are
// omitted. maxRows <= 0 selects DefaultMaxRows.
func (s *Store) Recent(ctx context.Context, domain Domain, minSecondsBack, maxRows int) ([]models.Reading, error) {
	if domain != DomainDashboard {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	metrics, err := s.RecentMetrics(ctx, time.Duration(minSecondsBack)*time.Second, maxRows)
	if err != nil {
		return nil, err
	}
	out := make([]models.Reading, len(metrics))
	for i := range metrics {
		out[i] = metrics[i].Reading()
	}
	return out, nil
}

// RecentMetrics is Recent over the dashboard table, returning full records.
func (s *Store) RecentMetrics(ctx context.Context, window time.Duration, maxRows int) ([]models.Metrics, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	cutoff := s.now().Add(-window).Unix()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+metricColumns+` FROM (
			SELECT id, `+metricColumns+` FROM dashboard_readings
			WHERE ts IS NOT NULL AND ts >= ?
			ORDER BY ts DESC, id DESC
			LIMIT ?
		) ORDER BY ts ASC, id ASC`,
		cutoff, maxRows,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent readings: %w", err)
	}
	return scanMetrics(rows)
}

// Range returns every reading with start <= ts <= end, oldest first.
func (s *Store) Range(ctx context.Context, start, end time.Time) ([]models.Metrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+metricColumns+` FROM dashboard_readings
		WHERE ts IS NOT NULL AND ts >= ? AND ts <= ?
		ORDER BY ts ASC, id ASC`,
		start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query reading range: %w", err)
	}
	return scanMetrics(rows)
}

// All returns the whole dashboard table, oldest first.
func (s *Store) All(ctx context.Context) ([]models.Metrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+metricColumns+` FROM dashboard_readings
		WHERE ts IS NOT NULL
		ORDER BY ts ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query all readings: %w", err)
	}
	return scanMetrics(rows)
}

// Latest returns the most recently stored reading, or nil when the table is
// empty.
func (s *Store) Latest(ctx context.Context) (*models.Metrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+metricColumns+` FROM dashboard_readings
		WHERE ts IS NOT NULL
		ORDER BY ts DESC, id DESC
		LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("query latest reading: %w", err)
	}
	out, err := scanMetrics(rows)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

// Count returns the number of stored dashboard readings.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dashboard_readings").Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

func scanMetrics(rows *sql.Rows) ([]models.Metrics, error) {
	defer rows.Close()

	var out []models.Metrics
	for rows.Next() {
		var (
			m                              models.Metrics
			ts                             int64
			temp, hum, pm25, pm25Raw, pm10 sql.NullFloat64
			status                         string
		)
		if err := rows.Scan(
			&ts, &temp, &hum, &pm25, &pm25Raw,
			&pm10, &m.ToxicIndex, &m.FlammableIndex, &m.SmokeIndex, &m.VOCIndex,
			&m.PM25AQI, &m.PM10AQI, &m.AQI, &status,
		); err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}
		m.Timestamp = time.Unix(ts, 0).UTC()
		m.TemperatureC = nullable(temp)
		m.HumidityPercent = nullable(hum)
		m.PM25 = nullable(pm25)
		m.PM25Raw = nullable(pm25Raw)
		m.PM10 = nullable(pm10)
		m.Status = models.Status(status)
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
