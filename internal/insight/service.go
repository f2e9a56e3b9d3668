// Package insight answers forecast queries by combining the reading
// history, the user's horizon and the forecast engine.
package insight

import (
	"context"
	"errors"
	"fmt"

	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/internal/insight/forecast"
	"github.com/HerbHall/airwatch/internal/settings"
	"github.com/HerbHall/airwatch/pkg/models"
	"go.uber.org/zap"
)

// HistorySource returns readings oldest first.
type HistorySource interface {
	Recent(ctx context.Context, domain history.Domain, minSecondsBack, maxRows int) ([]models.Reading, error)
}

// SettingsSource provides the current user settings.
type SettingsSource interface {
	Latest(ctx context.Context) (*models.UserSettings, error)
}

// Service runs forecast queries.
type Service struct {
	cfg      Config
	history  HistorySource
	settings SettingsSource
	engine   *forecast.Engine
	logger   *zap.Logger
}

// NewService creates a Service. settings may be nil, in which case the
// configured default horizon is always used.
func NewService(cfg Config, table *aqi.Table, hist HistorySource, s SettingsSource, logger *zap.Logger) *Service {
	def := DefaultConfig()
	if cfg.DefaultHorizonMinutes <= 0 {
		cfg.DefaultHorizonMinutes = def.DefaultHorizonMinutes
	}
	if cfg.MaxHorizonMinutes <= 0 {
		cfg.MaxHorizonMinutes = def.MaxHorizonMinutes
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = def.MaxRows
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Service{
		cfg:      cfg,
		history:  hist,
		settings: s,
		engine:   forecast.NewEngine(table, cfg.Step),
		logger:   logger,
	}
}

// HorizonMinutes returns the horizon from the latest settings, falling back
// to the configured default when settings are unset or unavailable.
func (s *Service) HorizonMinutes(ctx context.Context) int {
	if s.settings == nil {
		return s.cfg.DefaultHorizonMinutes
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	current, err := s.settings.Latest(ctx)
	if err != nil {
		s.logger.Warn("settings unavailable, using default horizon", zap.Error(err))
		return s.cfg.DefaultHorizonMinutes
	}
	return settings.HorizonAndCooldownMinutes(current, s.cfg.DefaultHorizonMinutes)
}

// MaxHorizonMinutes is the longest horizon ForecastFor projects. Longer
// requests are capped to it.
func (s *Service) MaxHorizonMinutes() int {
	return s.cfg.MaxHorizonMinutes
}

// Forecast projects AQI over the horizon from the user's settings.
func (s *Service) Forecast(ctx context.Context) Result {
	return s.ForecastFor(ctx, s.HorizonMinutes(ctx))
}

// ForecastFor projects AQI horizonMinutes ahead. It never returns an error
// or panics; failures are reported as a KindError result.
func (s *Service) ForecastFor(ctx context.Context, horizonMinutes int) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("forecast panicked", zap.Any("panic", r))
			res = Result{Kind: KindError, Err: fmt.Sprint(r)}
		}
		forecastQueriesTotal.WithLabelValues(string(res.Kind)).Inc()
	}()

	if horizonMinutes < 1 {
		horizonMinutes = 1
	}
	if horizonMinutes > s.cfg.MaxHorizonMinutes {
		horizonMinutes = s.cfg.MaxHorizonMinutes
	}

	lookback := history.LookbackFor(horizonMinutes)
	qctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	readings, err := s.history.Recent(qctx, history.DomainDashboard, int(lookback.Seconds()), s.cfg.MaxRows)
	if err != nil {
		s.logger.Error("forecast history query failed", zap.Error(err))
		return Result{Kind: KindError, HorizonMinutes: horizonMinutes, Err: err.Error()}
	}

	count := len(forecast.SamplesFromReadings(readings))
	f, err := s.engine.Project(readings, horizonMinutes)
	switch {
	case errors.Is(err, forecast.ErrInsufficientHistory), errors.Is(err, forecast.ErrDegenerateFit):
		s.logger.Debug("not enough history to forecast",
			zap.Int("history_count", count),
			zap.Duration("lookback", lookback),
			zap.Error(err),
		)
		return Result{Kind: KindInsufficient, HorizonMinutes: horizonMinutes, HistoryCount: count}
	case err != nil:
		s.logger.Error("forecast failed", zap.Error(err))
		return Result{Kind: KindError, HorizonMinutes: horizonMinutes, HistoryCount: count, Err: err.Error()}
	}

	forecastMargin.Set(f.Margin)
	forecastRMSE.Set(f.Fit.RMSE)
	return Result{Kind: KindOK, HorizonMinutes: horizonMinutes, HistoryCount: count, Forecast: f}
}
