// Package monitor is the ingest path: a raw sensor sample is turned into
// metrics, stored, announced on the event bus and run through one alert
// cycle.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/HerbHall/airwatch/internal/alert"
	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/internal/event"
	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/pkg/models"
	"go.uber.org/zap"
)

// Recorder persists samples and serves the recent window.
type Recorder interface {
	AppendRaw(ctx context.Context, r *aqi.RawSample) error
	Append(ctx context.Context, m *models.Metrics) error
	Recent(ctx context.Context, domain history.Domain, minSecondsBack, maxRows int) ([]models.Reading, error)
}

// Evaluator runs one alert cycle.
type Evaluator interface {
	Evaluate(ctx context.Context, history []models.Reading) alert.Outcome
}

// IngestResult is what one ingested sample produced.
type IngestResult struct {
	Metrics models.Metrics
	Alert   alert.Outcome
}

// Pipeline wires the ingest steps together.
type Pipeline struct {
	computer  *aqi.Computer
	recorder  Recorder
	evaluator Evaluator
	publisher event.Publisher
	window    time.Duration
	maxRows   int
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewPipeline creates a Pipeline. publisher may be nil. The alert window and
// row cap come from cfg.
func NewPipeline(cfg alert.Config, computer *aqi.Computer, rec Recorder, ev Evaluator, pub event.Publisher, logger *zap.Logger) *Pipeline {
	def := alert.DefaultConfig()
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.HistoryMaxRows <= 0 {
		cfg.HistoryMaxRows = def.HistoryMaxRows
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Pipeline{
		computer:  computer,
		recorder:  rec,
		evaluator: ev,
		publisher: pub,
		window:    cfg.HistoryWindow,
		maxRows:   cfg.HistoryMaxRows,
		timeout:   cfg.Timeout,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source. Intended for tests.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Ingest processes one raw sample. A sample without a timestamp is stamped
// with the current time. Only a failure to store the derived metrics is
// returned as an error; a failed alert cycle is reported in the result.
//
// The alert cycle always sees the ingested reading as the current one, even
// when its timestamp is older than stored rows or outside the window.
func (p *Pipeline) Ingest(ctx context.Context, raw aqi.RawSample) (*IngestResult, error) {
	if raw.Timestamp.IsZero() {
		raw.Timestamp = p.now().UTC()
	}
	metrics := p.computer.Compute(raw)

	storeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prior := p.priorWindow(storeCtx)
	if err := p.recorder.AppendRaw(storeCtx, &raw); err != nil {
		p.logger.Warn("failed to store raw sample", zap.Error(err))
	}
	if err := p.recorder.Append(storeCtx, &metrics); err != nil {
		return nil, fmt.Errorf("store metrics: %w", err)
	}

	currentAQI.Set(metrics.AQI)
	readingsTotal.WithLabelValues(string(metrics.Status)).Inc()

	if p.publisher != nil {
		p.publisher.PublishAsync(ctx, event.Event{
			Topic:     event.TopicReadingRecorded,
			Source:    "monitor",
			Timestamp: metrics.Timestamp,
			Payload:   metrics,
		})
	}

	window := append(prior, metrics.Reading())
	outcome := p.evaluator.Evaluate(ctx, window)
	p.logger.Debug("reading ingested",
		zap.Float64("aqi", metrics.AQI),
		zap.String("status", string(metrics.Status)),
		zap.Int("window", len(window)),
		zap.String("alert_decision", string(outcome.Decision)),
	)
	return &IngestResult{Metrics: metrics, Alert: outcome}, nil
}

// priorWindow loads the stored readings that precede the one being ingested,
// leaving room for it under the row cap.
func (p *Pipeline) priorWindow(ctx context.Context) []models.Reading {
	if p.maxRows <= 1 {
		return nil
	}
	rows, err := p.recorder.Recent(ctx, history.DomainDashboard, int(p.window.Seconds()), p.maxRows-1)
	if err != nil {
		p.logger.Warn("recent history unavailable, evaluating current reading only", zap.Error(err))
		return nil
	}
	return rows
}
