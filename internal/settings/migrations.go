package settings

import (
	"database/sql"

	"github.com/HerbHall/airwatch/internal/store"
)

// Migrations returns the settings component's schema steps.
func Migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create user settings log",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS user_settings (
					id                INTEGER PRIMARY KEY AUTOINCREMENT,
					email             TEXT,
					notifications     INTEGER NOT NULL DEFAULT 0,
					forecast_duration INTEGER,
					refresh_rate      INTEGER,
					ts                INTEGER NOT NULL
				)`)
				return err
			},
		},
	}
}
