// Package mqtt publishes readings and alert outcomes to an MQTT broker and
// optionally announces the monitor's sensors through Home Assistant
// auto-discovery.
package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/HerbHall/airwatch/internal/event"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Subscriber is the part of the event bus the publisher listens on.
type Subscriber interface {
	Subscribe(topic string, fn event.Handler) (unsubscribe func())
}

// Publisher forwards bus events to an MQTT broker. With no broker configured
// every method is a no-op.
type Publisher struct {
	logger      *zap.Logger
	cfg         Config
	client      pahomqtt.Client
	mu          sync.RWMutex
	unsubscribe []func()
}

// NewPublisher creates a publisher. Call Start to connect.
func NewPublisher(cfg Config, logger *zap.Logger) *Publisher {
	def := DefaultConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = def.ClientID
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = def.TopicPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HADiscoveryPrefix == "" {
		cfg.HADiscoveryPrefix = def.HADiscoveryPrefix
	}
	return &Publisher{logger: logger, cfg: cfg}
}

// Start connects to the broker and subscribes to bus. A failed connection is
// logged and retried in the background by the client.
func (p *Publisher) Start(_ context.Context, bus Subscriber) error {
	if !p.cfg.Enabled() {
		p.logger.Info("mqtt publisher disabled (no broker configured)")
		return nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(p.cfg.BrokerURL).
		SetClientID(p.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(p.cfg.Timeout).
		SetOnConnectHandler(func(pahomqtt.Client) {
			if p.cfg.HADiscovery {
				p.publishHADiscovery(BuildSensorDiscoveryConfigs(p.cfg.ClientID, p.cfg.TopicPrefix, p.cfg.HADiscoveryPrefix))
			}
		})

	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password) //nolint:gosec // G101: config field
	}

	p.mu.Lock()
	p.client = pahomqtt.NewClient(opts)
	p.mu.Unlock()
	token := p.client.Connect()

	switch {
	case !token.WaitTimeout(p.cfg.Timeout):
		p.logger.Warn("mqtt connection timed out; will reconnect in background")
	case token.Error() != nil:
		p.logger.Warn("mqtt connection failed; will reconnect in background",
			zap.Error(token.Error()),
		)
	default:
		p.logger.Info("mqtt connected to broker",
			zap.String("broker_url", p.cfg.BrokerURL),
			zap.String("topic_prefix", p.cfg.TopicPrefix),
		)
	}

	if bus != nil {
		p.subscribe(bus)
	}
	return nil
}

// Stop unsubscribes from the bus and disconnects.
func (p *Publisher) Stop(_ context.Context) error {
	for _, unsub := range p.unsubscribe {
		unsub()
	}
	p.unsubscribe = nil

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.logger.Info("mqtt disconnected")
	}
	return nil
}

// Connected reports whether the client currently holds a broker connection.
func (p *Publisher) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil && p.client.IsConnected()
}

func (p *Publisher) subscribe(bus Subscriber) {
	for _, topic := range []string{event.TopicReadingRecorded, event.TopicAlertDispatched, event.TopicAlertFailed} {
		p.unsubscribe = append(p.unsubscribe, bus.Subscribe(topic, p.publishEvent))
	}
}

// topicFor maps an event bus topic to an MQTT topic path.
func (p *Publisher) topicFor(eventTopic string) string {
	switch eventTopic {
	case event.TopicReadingRecorded:
		return p.cfg.TopicPrefix + "/reading"
	case event.TopicAlertDispatched:
		return p.cfg.TopicPrefix + "/alert/sent"
	case event.TopicAlertFailed:
		return p.cfg.TopicPrefix + "/alert/failed"
	default:
		return p.cfg.TopicPrefix + "/unknown"
	}
}

func (p *Publisher) publishEvent(_ context.Context, e event.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.client == nil || !p.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		p.logger.Warn("failed to marshal MQTT payload",
			zap.String("topic", e.Topic),
			zap.Error(err),
		)
		return
	}

	// Readings are retained so HA sensors show a value right after restart.
	retain := p.cfg.Retain || e.Topic == event.TopicReadingRecorded
	mqttTopic := p.topicFor(e.Topic)
	token := p.client.Publish(mqttTopic, p.cfg.QoS, retain, payload)
	if !token.WaitTimeout(p.cfg.Timeout) {
		p.logger.Warn("mqtt publish timed out",
			zap.String("mqtt_topic", mqttTopic),
		)
		return
	}
	if token.Error() != nil {
		p.logger.Warn("mqtt publish failed",
			zap.String("mqtt_topic", mqttTopic),
			zap.Error(token.Error()),
		)
		return
	}

	p.logger.Debug("mqtt event published",
		zap.String("mqtt_topic", mqttTopic),
		zap.String("event_topic", e.Topic),
	)
}

// publishHADiscovery publishes a batch of HA discovery config payloads.
func (p *Publisher) publishHADiscovery(configs []DiscoveryConfig) {
	for i := range configs {
		// Discovery configs are always retained so HA picks them up on restart.
		token := p.client.Publish(configs[i].Topic, p.cfg.QoS, true, configs[i].Payload)
		if !token.WaitTimeout(p.cfg.Timeout) {
			p.logger.Warn("ha discovery publish timed out",
				zap.String("topic", configs[i].Topic),
			)
			continue
		}
		if token.Error() != nil {
			p.logger.Warn("ha discovery publish failed",
				zap.String("topic", configs[i].Topic),
				zap.Error(token.Error()),
			)
			continue
		}
		p.logger.Debug("ha discovery published",
			zap.String("topic", configs[i].Topic),
			zap.Bool("removal", len(configs[i].Payload) == 0),
		)
	}
}

// RemoveHADiscovery publishes empty retained configs so HA drops the
// monitor's entities. It requires a live connection.
func (p *Publisher) RemoveHADiscovery() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.client == nil || !p.client.IsConnected() {
		return false
	}
	p.publishHADiscovery(BuildSensorRemovalConfigs(p.cfg.ClientID, p.cfg.HADiscoveryPrefix))
	return true
}
