package history

import (
	"database/sql"

	"github.com/HerbHall/airwatch/internal/store"
)

// Migrations returns the history component's schema steps.
func Migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create dashboard readings",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS dashboard_readings (
						id               INTEGER PRIMARY KEY AUTOINCREMENT,
						ts               INTEGER,
						temperature_c    REAL,
						humidity_percent REAL,
						pm2_5_ug_m3      REAL,
						pm2_5_ug_m3_raw  REAL,
						pm10_ug_m3       REAL,
						toxic_index      REAL NOT NULL DEFAULT 0,
						flammable_index  REAL NOT NULL DEFAULT 0,
						smoke_index      REAL NOT NULL DEFAULT 0,
						voc_index        REAL NOT NULL DEFAULT 0,
						pm25_aqi         REAL NOT NULL DEFAULT 0,
						pm10_aqi         REAL NOT NULL DEFAULT 0,
						aqi              REAL NOT NULL DEFAULT 0,
						status           TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE INDEX IF NOT EXISTS idx_dashboard_readings_ts ON dashboard_readings(ts)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     2,
			Description: "create raw samples",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS raw_samples (
					id                  INTEGER PRIMARY KEY AUTOINCREMENT,
					ts                  INTEGER NOT NULL,
					temperature_c       REAL,
					humidity_percent    REAL,
					concentration_ug_m3 REAL,
					mq2_voltage         REAL,
					mq135_voltage       REAL
				)`)
				return err
			},
		},
	}
}
