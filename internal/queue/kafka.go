// Package queue streams bus events to a Kafka topic for downstream
// consumers such as long-term storage or dashboards on other hosts.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/HerbHall/airwatch/internal/alert"
	"github.com/HerbHall/airwatch/internal/event"
	"github.com/HerbHall/airwatch/pkg/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Config holds the Kafka producer settings. An empty broker list disables it.
type Config struct {
	Brokers []string      `mapstructure:"brokers"`
	Topic   string        `mapstructure:"topic"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the producer defaults.
func DefaultConfig() Config {
	return Config{
		Topic:   "airwatch.events",
		Timeout: 5 * time.Second,
	}
}

// Enabled reports whether at least one broker is configured.
func (c Config) Enabled() bool {
	return len(c.Brokers) > 0
}

// Subscriber is the part of the event bus the producer listens on.
type Subscriber interface {
	Subscribe(topic string, fn event.Handler) (unsubscribe func())
}

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the JSON value of every produced message.
type Envelope struct {
	Event     string    `json:"event"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"ts"`
	Data      any       `json:"data"`
}

// Producer forwards bus events to Kafka.
type Producer struct {
	writer      messageWriter
	timeout     time.Duration
	logger      *zap.Logger
	unsubscribe []func()
}

// NewProducer creates a producer writing to cfg.Topic. Messages are
// partitioned by key so all events for one alert attempt stay ordered.
func NewProducer(cfg Config, logger *zap.Logger) *Producer {
	def := DefaultConfig()
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Start subscribes the producer to every topic on bus.
func (p *Producer) Start(bus Subscriber) {
	for _, topic := range []string{event.TopicReadingRecorded, event.TopicAlertDispatched, event.TopicAlertFailed} {
		p.unsubscribe = append(p.unsubscribe, bus.Subscribe(topic, p.handleEvent))
	}
}

// Close unsubscribes and flushes the writer.
func (p *Producer) Close() error {
	for _, unsub := range p.unsubscribe {
		unsub()
	}
	p.unsubscribe = nil
	return p.writer.Close()
}

// Publish sends one event to Kafka.
func (p *Producer) Publish(ctx context.Context, e event.Event) error {
	msg, err := MessageFor(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (p *Producer) handleEvent(ctx context.Context, e event.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if err := p.Publish(ctx, e); err != nil {
		p.logger.Warn("kafka publish failed",
			zap.String("topic", e.Topic),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("kafka event published", zap.String("topic", e.Topic))
}

// MessageFor builds the Kafka message for e. Alert events are keyed by
// attempt ID, readings by their unix timestamp.
func MessageFor(e event.Event) (kafka.Message, error) {
	value, err := json.Marshal(Envelope{
		Event:     e.Topic,
		Source:    e.Source,
		Timestamp: e.Timestamp.UTC(),
		Data:      e.Payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", e.Topic, err)
	}
	return kafka.Message{
		Key:   []byte(keyFor(e)),
		Value: value,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(e.Topic)},
			{Key: "source", Value: []byte(e.Source)},
		},
	}, nil
}

func keyFor(e event.Event) string {
	switch v := e.Payload.(type) {
	case alert.AlertEvent:
		return v.AttemptID
	case *alert.AlertEvent:
		return v.AttemptID
	case models.Metrics:
		return strconv.FormatInt(v.Timestamp.Unix(), 10)
	case *models.Metrics:
		return strconv.FormatInt(v.Timestamp.Unix(), 10)
	}
	return e.Topic
}
