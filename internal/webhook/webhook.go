// Package webhook posts alert outcomes, and optionally every reading, to a
// configurable HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/HerbHall/airwatch/internal/event"
	"github.com/HerbHall/airwatch/internal/version"
	"go.uber.org/zap"
)

// Config holds the webhook sink configuration.
type Config struct {
	URL             string        `mapstructure:"url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Enabled         bool          `mapstructure:"enabled"`
	IncludeReadings bool          `mapstructure:"include_readings"`
}

// DefaultConfig returns the webhook defaults: enabled, but inert until a
// URL is set.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
		Enabled: true,
	}
}

// Subscriber is the part of the event bus the sink listens on.
type Subscriber interface {
	Subscribe(topic string, fn event.Handler) (unsubscribe func())
}

// Sink delivers bus events as HTTP POST requests.
type Sink struct {
	logger      *zap.Logger
	cfg         Config
	client      *http.Client
	unsubscribe []func()
}

// NewSink creates a webhook sink.
func NewSink(cfg Config, logger *zap.Logger) *Sink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.URL == "" && cfg.Enabled {
		logger.Warn("webhook URL not configured; notifications will be dropped",
			zap.String("component", "webhook"),
		)
	}
	return &Sink{
		logger: logger,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Topics returns the bus topics the sink forwards.
func (s *Sink) Topics() []string {
	topics := []string{event.TopicAlertDispatched, event.TopicAlertFailed}
	if s.cfg.IncludeReadings {
		topics = append(topics, event.TopicReadingRecorded)
	}
	return topics
}

// Start subscribes the sink to bus.
func (s *Sink) Start(bus Subscriber) {
	if !s.cfg.Enabled || s.cfg.URL == "" {
		return
	}
	for _, topic := range s.Topics() {
		s.unsubscribe = append(s.unsubscribe, bus.Subscribe(topic, s.handleEvent))
	}
	s.logger.Info("webhook sink started",
		zap.String("url", s.cfg.URL),
		zap.Strings("topics", s.Topics()),
	)
}

// Stop unsubscribes from the bus.
func (s *Sink) Stop() {
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	s.unsubscribe = nil
}

// WebhookPayload is the JSON body sent to the webhook URL.
type WebhookPayload struct {
	Event     string `json:"event"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

func (s *Sink) handleEvent(ctx context.Context, e event.Event) {
	if !s.cfg.Enabled || s.cfg.URL == "" {
		return
	}

	payload := WebhookPayload{
		Event:     e.Topic,
		Source:    e.Source,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Data:      e.Payload,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal webhook payload",
			zap.String("topic", e.Topic),
			zap.Error(err),
		)
		return
	}

	s.send(ctx, body, e.Topic)
}

func (s *Sink) send(ctx context.Context, body []byte, topic string) {
	// Publishers may hand over a request-scoped context that ends before
	// delivery; the client timeout bounds the request instead.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("failed to create webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "AirWatch-Webhook/"+version.Short())

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			zap.String("url", s.cfg.URL),
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		s.logger.Warn("webhook endpoint returned error",
			zap.String("url", s.cfg.URL),
			zap.String("topic", topic),
			zap.Int("status_code", resp.StatusCode),
		)
		return
	}

	s.logger.Debug("webhook delivered",
		zap.String("topic", topic),
		zap.Int("status_code", resp.StatusCode),
	)
}
