package insight

import (
	"time"

	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/internal/insight/forecast"
	"github.com/HerbHall/airwatch/internal/settings"
)

// Config holds the forecast section of the configuration.
type Config struct {
	Step                  time.Duration `mapstructure:"step"`
	DefaultHorizonMinutes int           `mapstructure:"default_horizon_minutes"`
	MaxHorizonMinutes     int           `mapstructure:"max_horizon_minutes"`
	MaxRows               int           `mapstructure:"max_rows"`
	Timeout               time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the forecast defaults.
func DefaultConfig() Config {
	return Config{
		Step:                  forecast.DefaultStep,
		DefaultHorizonMinutes: settings.DefaultForecastHorizonMinutes,
		MaxHorizonMinutes:     24 * 60,
		MaxRows:               history.DefaultMaxRows,
		Timeout:               5 * time.Second,
	}
}
