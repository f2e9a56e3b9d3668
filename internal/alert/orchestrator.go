// Package alert decides when a spike warrants an email and sends it. One
// evaluation cycle runs per ingested reading.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/internal/event"
	"github.com/HerbHall/airwatch/internal/insight/anomaly"
	"github.com/HerbHall/airwatch/internal/insight/baseline"
	"github.com/HerbHall/airwatch/internal/insight/trend"
	"github.com/HerbHall/airwatch/internal/settings"
	"github.com/HerbHall/airwatch/pkg/models"
	"go.uber.org/zap"
)

// Decision is the result of one evaluation cycle.
type Decision string

const (
	DecisionNoHistory             Decision = "no_history"
	DecisionCooldown              Decision = "cooldown"
	DecisionNoSpike               Decision = "no_spike"
	DecisionNotificationsDisabled Decision = "notifications_disabled"
	DecisionNoRecipient           Decision = "no_recipient"
	DecisionDispatched            Decision = "dispatched"
	DecisionDispatchFailed        Decision = "dispatch_failed"
	DecisionError                 Decision = "error"
)

// State backends selectable in Config.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the alert section of the configuration.
type Config struct {
	RelativeFactor float64       `mapstructure:"relative_factor"`
	HistoryWindow  time.Duration `mapstructure:"history_window"`
	HistoryMaxRows int           `mapstructure:"history_max_rows"`
	StateBackend   string        `mapstructure:"state_backend"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Redis          RedisConfig   `mapstructure:"redis"`
	SMTP           SMTPConfig    `mapstructure:"smtp"`
}

// DefaultConfig returns the alert defaults.
func DefaultConfig() Config {
	return Config{
		RelativeFactor: anomaly.DefaultRelativeFactor,
		HistoryWindow:  30 * time.Minute,
		HistoryMaxRows: 200,
		StateBackend:   BackendSQLite,
		Timeout:        5 * time.Second,
		Redis:          RedisConfig{Addr: "localhost:6379", Key: DefaultRedisKey},
		SMTP:           DefaultSMTPConfig(),
	}
}

// SettingsSource provides the current user settings. A nil result means
// nothing has been saved.
type SettingsSource interface {
	Latest(ctx context.Context) (*models.UserSettings, error)
}

// Dispatcher delivers one notification. A nil error means delivered.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// Notification is everything a Dispatcher needs for one alert.
type Notification struct {
	Recipient      string
	Spikes         models.SpikeSet
	Current        models.Values
	Trend          *trend.Summary
	HorizonMinutes int
	Message        Message
}

// Outcome describes what one cycle did.
type Outcome struct {
	Decision        Decision        `json:"decision"`
	Spikes          models.SpikeSet `json:"spikes,omitempty"`
	Trend           *trend.Summary  `json:"trend,omitempty"`
	CooldownMinutes int             `json:"cooldown_minutes"`
	Remaining       time.Duration   `json:"-"`
	AttemptID       string          `json:"attempt_id,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// Sent reports whether the cycle delivered an alert.
func (o Outcome) Sent() bool { return o.Decision == DecisionDispatched }

// Deps are the collaborators of an Orchestrator. Attempts and Publisher
// are optional.
type Deps struct {
	Table      *aqi.Table
	State      StateRepository
	Settings   SettingsSource
	Dispatcher Dispatcher
	Attempts   AttemptLog
	Publisher  event.Publisher
	Logger     *zap.Logger
}

// Orchestrator runs alert evaluation cycles. Cycles are serialized so the
// cooldown check and commit cannot interleave.
type Orchestrator struct {
	mu         sync.Mutex
	table      *aqi.Table
	detector   *anomaly.Detector
	cooldown   *Cooldown
	settings   SettingsSource
	dispatcher Dispatcher
	attempts   AttemptLog
	publisher  event.Publisher
	timeout    time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Orchestrator{
		table:      deps.Table,
		detector:   anomaly.NewDetector(deps.Table, cfg.RelativeFactor),
		cooldown:   NewCooldown(deps.State, logger),
		settings:   deps.Settings,
		dispatcher: deps.Dispatcher,
		attempts:   deps.Attempts,
		publisher:  deps.Publisher,
		timeout:    timeout,
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock replaces the time source. Intended for tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Evaluate runs one cycle over history, oldest first. The last reading is
// the current one. Guards run in order and the first that fails ends the
// cycle without side effects. Evaluate never panics; an internal fault is
// reported as DecisionError.
func (o *Orchestrator) Evaluate(ctx context.Context, history []models.Reading) (out Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("alert cycle panicked", zap.Any("panic", r))
			out = Outcome{Decision: DecisionError, Error: fmt.Sprint(r)}
		}
		alertCyclesTotal.WithLabelValues(string(out.Decision)).Inc()
	}()

	if len(history) == 0 {
		return Outcome{Decision: DecisionNoHistory}
	}

	current := o.loadSettings(ctx)
	minutes := settings.HorizonAndCooldownMinutes(current, settings.DefaultCooldownMinutes)
	now := o.now()

	stateCtx, cancel := context.WithTimeout(ctx, o.timeout)
	remaining := o.cooldown.Remaining(stateCtx, now, minutes)
	cancel()
	if remaining > 0 {
		o.logger.Debug("alert suppressed by cooldown",
			zap.Int("cooldown_minutes", minutes),
			zap.Duration("remaining", remaining),
		)
		return Outcome{Decision: DecisionCooldown, CooldownMinutes: minutes, Remaining: remaining}
	}

	values := history[len(history)-1].Values
	spikes := o.detector.Detect(values, baseline.Mean(history))
	if spikes.Empty() {
		return Outcome{Decision: DecisionNoSpike, CooldownMinutes: minutes}
	}

	if current == nil || !current.NotificationsEnabled {
		o.logger.Debug("spike detected but notifications are disabled", zap.Strings("sensors", spikes.Strings()))
		return Outcome{Decision: DecisionNotificationsDisabled, Spikes: spikes, CooldownMinutes: minutes}
	}
	recipient := current.Recipient()
	if recipient == "" {
		o.logger.Warn("spike detected but no recipient is configured", zap.Strings("sensors", spikes.Strings()))
		return Outcome{Decision: DecisionNoRecipient, Spikes: spikes, CooldownMinutes: minutes}
	}

	var summary *trend.Summary
	if s, ok := trend.Summarize(o.table, history, minutes); ok {
		summary = &s
	}

	n := Notification{
		Recipient:      recipient,
		Spikes:         spikes,
		Current:        values,
		Trend:          summary,
		HorizonMinutes: minutes,
		Message:        Compose(spikes, values, summary, minutes),
	}
	return o.dispatch(ctx, n, now)
}

// dispatch sends n, logs the attempt and commits the cooldown on success.
func (o *Orchestrator) dispatch(ctx context.Context, n Notification, now time.Time) Outcome {
	out := Outcome{Spikes: n.Spikes, Trend: n.Trend, CooldownMinutes: n.HorizonMinutes}

	sendErr := o.dispatcher.Send(ctx, n)

	attempt := NewAttempt(n, now)
	attempt.Delivered = sendErr == nil
	if sendErr != nil {
		attempt.Error = sendErr.Error()
	}
	out.AttemptID = attempt.ID
	o.recordAttempt(ctx, attempt)

	ev := AlertEvent{
		AttemptID:      attempt.ID,
		At:             now,
		Recipient:      n.Recipient,
		Sensors:        attempt.Sensors,
		Subject:        n.Message.Subject,
		Trend:          n.Trend,
		HorizonMinutes: n.HorizonMinutes,
		Error:          attempt.Error,
	}

	if sendErr != nil {
		alertDispatchTotal.WithLabelValues("failed").Inc()
		o.logger.Error("alert dispatch failed",
			zap.String("attempt_id", attempt.ID),
			zap.String("recipient", n.Recipient),
			zap.Strings("sensors", attempt.Sensors),
			zap.Error(sendErr),
		)
		o.publish(ctx, event.TopicAlertFailed, ev)
		out.Decision = DecisionDispatchFailed
		out.Error = sendErr.Error()
		return out
	}

	alertDispatchTotal.WithLabelValues("delivered").Inc()
	o.logger.Info("alert dispatched",
		zap.String("attempt_id", attempt.ID),
		zap.String("recipient", n.Recipient),
		zap.Strings("sensors", attempt.Sensors),
		zap.Int("cooldown_minutes", n.HorizonMinutes),
	)

	stateCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := o.cooldown.Commit(stateCtx, now); err != nil {
		// The alert went out; the next cycle may send a duplicate.
		o.logger.Error("failed to persist alert state", zap.Error(err))
	}

	o.publish(ctx, event.TopicAlertDispatched, ev)
	out.Decision = DecisionDispatched
	return out
}

func (o *Orchestrator) loadSettings(ctx context.Context) *models.UserSettings {
	if o.settings == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	s, err := o.settings.Latest(ctx)
	if err != nil {
		o.logger.Warn("settings unavailable, using defaults", zap.Error(err))
		return nil
	}
	return s
}

func (o *Orchestrator) recordAttempt(ctx context.Context, a *Attempt) {
	if o.attempts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := o.attempts.Record(ctx, a); err != nil {
		o.logger.Warn("failed to record alert attempt", zap.String("attempt_id", a.ID), zap.Error(err))
	}
}

func (o *Orchestrator) publish(ctx context.Context, topic string, ev AlertEvent) {
	if o.publisher == nil {
		return
	}
	o.publisher.PublishAsync(ctx, event.Event{
		Topic:     topic,
		Source:    "alert",
		Timestamp: ev.At,
		Payload:   ev,
	})
}
