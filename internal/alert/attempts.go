package alert

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Attempt is one logged dispatch.
type Attempt struct {
	ID          string    `json:"id"`
	AttemptedAt time.Time `json:"attempted_at"`
	Recipient   string    `json:"recipient"`
	Sensors     []string  `json:"sensors"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Delivered   bool      `json:"delivered"`
	Error       string    `json:"error,omitempty"`
}

// AttemptLog records every dispatch attempt, delivered or not.
type AttemptLog interface {
	Record(ctx context.Context, a *Attempt) error
}

var _ AttemptLog = (*AttemptStore)(nil)

// AttemptStore keeps attempts in the alert_attempts table.
type AttemptStore struct {
	db *sql.DB
}

// NewAttemptStore creates an AttemptStore on db.
func NewAttemptStore(db *sql.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

// NewAttempt builds an attempt with a fresh ID for n at t.
func NewAttempt(n Notification, t time.Time) *Attempt {
	return &Attempt{
		ID:          uuid.New().String(),
		AttemptedAt: t,
		Recipient:   n.Recipient,
		Sensors:     n.Spikes.Strings(),
		Subject:     n.Message.Subject,
		Body:        n.Message.Plain,
	}
}

// Record inserts a. An empty ID is filled in.
func (s *AttemptStore) Record(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_attempts (id, attempted_at, recipient, sensors, subject, body, delivered, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AttemptedAt.Unix(), a.Recipient, strings.Join(a.Sensors, ","),
		a.Subject, a.Body, a.Delivered, a.Error,
	)
	if err != nil {
		return fmt.Errorf("insert alert attempt: %w", err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (s *AttemptStore) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempted_at, recipient, sensors, subject, body, delivered, error
		FROM alert_attempts
		ORDER BY attempted_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alert attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a       Attempt
			at      int64
			sensors string
		)
		if err := rows.Scan(&a.ID, &at, &a.Recipient, &sensors, &a.Subject, &a.Body, &a.Delivered, &a.Error); err != nil {
			return nil, fmt.Errorf("scan alert attempt: %w", err)
		}
		a.AttemptedAt = time.Unix(at, 0).UTC()
		if sensors != "" {
			a.Sensors = strings.Split(sensors, ",")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
