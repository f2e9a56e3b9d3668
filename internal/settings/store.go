// Package settings keeps the append-only log of user preferences and serves
// the latest row as the current configuration.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/airwatch/pkg/models"
)

const (
	// DefaultCooldownMinutes applies when no horizon is saved.
	DefaultCooldownMinutes = 30
	// DefaultForecastHorizonMinutes is the forecast query horizon when no
	// horizon is saved.
	DefaultForecastHorizonMinutes = 60
)

// HorizonAndCooldownMinutes returns the saved forecast horizon, which is also
// the minimum number of minutes between alert emails. fallback is used when
// s is nil or has no horizon; the result is never below one minute.
func HorizonAndCooldownMinutes(s *models.UserSettings, fallback int) int {
	minutes := fallback
	if s != nil && s.ForecastHorizonMinutes != nil {
		minutes = *s.ForecastHorizonMinutes
	}
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Store appends and reads user_settings rows.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store on db. The settings migrations must already be
// applied.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Save appends s as the newest settings row and returns it with ID and
// SavedAt filled in.
func (s *Store) Save(ctx context.Context, in *models.UserSettings) (*models.UserSettings, error) {
	saved := *in
	saved.SavedAt = s.now().UTC().Truncate(time.Second)

	notifications := 0
	if in.NotificationsEnabled {
		notifications = 1
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (email, notifications, forecast_duration, refresh_rate, ts)
		VALUES (?, ?, ?, ?, ?)`,
		in.Email, notifications, in.ForecastHorizonMinutes, in.RefreshRateSeconds, saved.SavedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert settings: %w", err)
	}
	if saved.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("settings row id: %w", err)
	}
	return &saved, nil
}

// Latest returns the most recently saved row, or nil when none exists.
func (s *Store) Latest(ctx context.Context) (*models.UserSettings, error) {
	var (
		out           models.UserSettings
		email         sql.NullString
		notifications int
		horizon       sql.NullInt64
		refresh       sql.NullInt64
		ts            int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, notifications, forecast_duration, refresh_rate, ts
		FROM user_settings
		ORDER BY id DESC
		LIMIT 1`,
	).Scan(&out.ID, &email, &notifications, &horizon, &refresh, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest settings: %w", err)
	}

	if email.Valid {
		out.Email = &email.String
	}
	out.NotificationsEnabled = notifications != 0
	out.ForecastHorizonMinutes = nullableInt(horizon)
	out.RefreshRateSeconds = nullableInt(refresh)
	out.SavedAt = time.Unix(ts, 0).UTC()
	return &out, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
