package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ StateRepository = (*SQLiteState)(nil)

// SQLiteState stores alert state in the alert_state singleton row. The row
// is created on first write and never deleted.
type SQLiteState struct {
	db *sql.DB
}

// NewSQLiteState creates a SQLiteState on db. The alert migrations must
// already be applied.
func NewSQLiteState(db *sql.DB) *SQLiteState {
	return &SQLiteState{db: db}
}

func (s *SQLiteState) LastSent(ctx context.Context) (time.Time, bool, error) {
	var nanos sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT last_sent_at FROM alert_state WHERE id = 1").Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query alert state: %w", err)
	}
	if !nanos.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(0, nanos.Int64).UTC(), true, nil
}

func (s *SQLiteState) SetLastSent(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_state (id, last_sent_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_sent_at = MAX(COALESCE(alert_state.last_sent_at, 0), excluded.last_sent_at)`,
		t.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert alert state: %w", err)
	}
	return nil
}
