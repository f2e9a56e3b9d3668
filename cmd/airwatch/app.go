package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HerbHall/airwatch/internal/alert"
	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/internal/config"
	"github.com/HerbHall/airwatch/internal/event"
	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/internal/insight"
	"github.com/HerbHall/airwatch/internal/monitor"
	"github.com/HerbHall/airwatch/internal/mqtt"
	"github.com/HerbHall/airwatch/internal/queue"
	"github.com/HerbHall/airwatch/internal/server"
	"github.com/HerbHall/airwatch/internal/settings"
	"github.com/HerbHall/airwatch/internal/store"
	"github.com/HerbHall/airwatch/internal/version"
	"github.com/HerbHall/airwatch/internal/webhook"
	"github.com/HerbHall/airwatch/internal/ws"
	"go.uber.org/zap"
)

// app is the composition root for the serve command.
type app struct {
	serverCfg  server.Config
	routes     []server.RouteRegistrar
	ready      server.ReadinessChecker
	components server.ComponentSource

	db       *store.Store
	closeFns []func()
	ws       *ws.Handler
	mqtt     *mqtt.Publisher
	webhook  *webhook.Sink
	producer *queue.Producer
	logger   *zap.Logger
}

func newApp(ctx context.Context, cfg *config.ViperConfig, logger *zap.Logger) (*app, error) {
	serverCfg := server.DefaultConfig()
	alertCfg := alert.DefaultConfig()
	forecastCfg := insight.DefaultConfig()
	mqttCfg := mqtt.DefaultConfig()
	webhookCfg := webhook.DefaultConfig()
	kafkaCfg := queue.DefaultConfig()
	for key, target := range map[string]any{
		"server":   &serverCfg,
		"alert":    &alertCfg,
		"forecast": &forecastCfg,
		"mqtt":     &mqttCfg,
		"webhook":  &webhookCfg,
		"kafka":    &kafkaCfg,
	} {
		if err := cfg.Decode(key, target); err != nil {
			return nil, err
		}
	}

	table, err := aqi.TableForProfile(cfg.GetString("aqi.profile"))
	if err != nil {
		return nil, err
	}
	logger.Info("aqi table selected", zap.String("component", "aqi"), zap.String("profile", table.Profile))

	db, err := openDatabase(ctx, cfg, serverCfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{serverCfg: serverCfg, db: db, logger: logger}

	state, closeState, err := newStateRepository(ctx, alertCfg, db, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closeFns = append(a.closeFns, closeState)

	bus := event.NewBus(logger.Named("event"))
	historyStore := history.NewStore(db.DB())
	settingsStore := settings.NewStore(db.DB())

	dispatcher := alert.NewSMTPDispatcher(alertCfg.SMTP, logger.Named("smtp"))
	if !alertCfg.SMTP.Configured() {
		logger.Warn("SMTP not configured; alert emails will fail and be logged",
			zap.String("component", "alert"),
		)
	}
	orchestrator := alert.NewOrchestrator(alertCfg, alert.Deps{
		Table:      table,
		State:      state,
		Settings:   settingsStore,
		Dispatcher: dispatcher,
		Attempts:   alert.NewAttemptStore(db.DB()),
		Publisher:  bus,
		Logger:     logger.Named("alert"),
	})
	pipeline := monitor.NewPipeline(alertCfg, aqi.NewComputer(table), historyStore, orchestrator, bus, logger.Named("monitor"))
	forecasts := insight.NewService(forecastCfg, table, historyStore, settingsStore, logger.Named("insight"))

	a.ws = ws.NewHandler(bus, serverCfg.AllowedOrigins, logger.Named("ws"))
	a.routes = []server.RouteRegistrar{
		monitor.NewHandler(pipeline, historyStore, logger.Named("monitor")),
		settings.NewHandler(settingsStore, logger.Named("settings")),
		insight.NewHandler(forecasts),
		a.ws,
	}

	a.mqtt = mqtt.NewPublisher(mqttCfg, logger.Named("mqtt"))
	if err := a.mqtt.Start(ctx, bus); err != nil {
		a.close()
		return nil, fmt.Errorf("start mqtt publisher: %w", err)
	}

	a.webhook = webhook.NewSink(webhookCfg, logger.Named("webhook"))
	a.webhook.Start(bus)

	if kafkaCfg.Enabled() {
		a.producer = queue.NewProducer(kafkaCfg, logger.Named("kafka"))
		a.producer.Start(bus)
		logger.Info("kafka producer started",
			zap.Strings("brokers", kafkaCfg.Brokers),
			zap.String("topic", kafkaCfg.Topic),
		)
	}

	a.ready = func(ctx context.Context) error {
		return db.Ping(ctx)
	}
	a.components = func() []server.Component {
		return []server.Component{
			{Name: "alert_state", Enabled: true, Detail: alertCfg.StateBackend},
			{Name: "smtp", Enabled: alertCfg.SMTP.Configured(), Detail: alertCfg.SMTP.Host},
			{Name: "websocket", Enabled: true, Detail: fmt.Sprintf("%d clients", a.ws.Hub().ClientCount())},
			{Name: "mqtt", Enabled: mqttCfg.Enabled(), Detail: connectedDetail(a.mqtt.Connected())},
			{Name: "webhook", Enabled: webhookCfg.Enabled && webhookCfg.URL != ""},
			{Name: "kafka", Enabled: kafkaCfg.Enabled(), Detail: strings.Join(kafkaCfg.Brokers, ",")},
		}
	}
	return a, nil
}

// stop shuts down background sinks before the HTTP server goes away.
func (a *app) stop(ctx context.Context) {
	a.ws.Close()
	a.webhook.Stop()
	if err := a.mqtt.Stop(ctx); err != nil {
		a.logger.Warn("mqtt stop failed", zap.Error(err))
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close failed", zap.Error(err))
		}
	}
}

// close releases the state backend and the database.
func (a *app) close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("database close failed", zap.Error(err))
	}
}

func connectedDetail(connected bool) string {
	if connected {
		return "connected"
	}
	return "disconnected"
}

// openDatabase opens the SQLite database, refuses one written by a newer
// binary and applies every component's migrations.
func openDatabase(ctx context.Context, cfg *config.ViperConfig, serverCfg server.Config, logger *zap.Logger) (*store.Store, error) {
	dsn := cfg.GetString("database.dsn")
	if dsn == "" {
		dsn = filepath.Join(serverCfg.DataDir, "airwatch.db")
	}
	db, err := store.New(dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, m := range []struct {
		component  string
		migrations []store.Migration
	}{
		{"history", history.Migrations()},
		{"settings", settings.Migrations()},
		{"alert", alert.Migrations()},
	} {
		if err := db.Migrate(ctx, m.component, m.migrations); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate %s: %w", m.component, err)
		}
	}

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dsn),
	)
	return db, nil
}

// newStateRepository builds the cooldown state backend named in cfg.
func newStateRepository(ctx context.Context, cfg alert.Config, db *store.Store, logger *zap.Logger) (alert.StateRepository, func(), error) {
	noop := func() {}
	switch cfg.StateBackend {
	case alert.BackendSQLite, "":
		return alert.NewSQLiteState(db.DB()), noop, nil
	case alert.BackendMemory:
		logger.Warn("alert cooldown state is in memory and resets on restart",
			zap.String("component", "alert"),
		)
		return alert.NewMemoryState(), noop, nil
	case alert.BackendRedis:
		client := alert.NewRedisClient(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("alert state backed by redis",
			zap.String("component", "alert"),
			zap.String("addr", cfg.Redis.Addr),
			zap.String("key", cfg.Redis.Key),
		)
		return alert.NewRedisState(client, cfg.Redis.Key), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown alert.state_backend %q: must be %q, %q or %q",
			cfg.StateBackend, alert.BackendSQLite, alert.BackendRedis, alert.BackendMemory)
	}
}
