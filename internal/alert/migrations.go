package alert

import (
	"database/sql"

	"github.com/HerbHall/airwatch/internal/store"
)

// Migrations returns the alert component's schema steps.
func Migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create alert state and attempt log",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS alert_state (
						id           INTEGER PRIMARY KEY CHECK (id = 1),
						last_sent_at INTEGER
					)`,
					`CREATE TABLE IF NOT EXISTS alert_attempts (
						id           TEXT PRIMARY KEY,
						attempted_at INTEGER NOT NULL,
						recipient    TEXT NOT NULL,
						sensors      TEXT NOT NULL,
						subject      TEXT NOT NULL DEFAULT '',
						body         TEXT NOT NULL DEFAULT '',
						delivered    INTEGER NOT NULL DEFAULT 0,
						error        TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE INDEX IF NOT EXISTS idx_alert_attempts_at ON alert_attempts(attempted_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
