package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	DataDir        string        `mapstructure:"data_dir"`
	DevMode        bool          `mapstructure:"dev_mode"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		DataDir:        "./data",
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		MaxBodyBytes:   1 << 20,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
	}
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
// Every key has a default so environment overrides such as
// AW_ALERT_SMTP_HOST reach nested sections.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Server
	def := DefaultConfig()
	v.SetDefault("server.host", def.Host)
	v.SetDefault("server.port", def.Port)
	v.SetDefault("server.data_dir", def.DataDir)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.rate_limit_rps", def.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", def.RateLimitBurst)
	v.SetDefault("server.max_body_bytes", def.MaxBodyBytes)
	v.SetDefault("server.read_timeout", def.ReadTimeout)
	v.SetDefault("server.write_timeout", def.WriteTimeout)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("database.dsn", "./data/airwatch.db")

	// Readings and forecasting
	v.SetDefault("aqi.profile", "indoor")
	v.SetDefault("forecast.step", "1m")
	v.SetDefault("forecast.default_horizon_minutes", 60)
	v.SetDefault("forecast.max_horizon_minutes", 1440)
	v.SetDefault("forecast.max_rows", 2000)
	v.SetDefault("forecast.timeout", "5s")

	// Alerting
	v.SetDefault("alert.relative_factor", 1.4)
	v.SetDefault("alert.history_window", "30m")
	v.SetDefault("alert.history_max_rows", 200)
	v.SetDefault("alert.state_backend", "sqlite")
	v.SetDefault("alert.timeout", "5s")
	v.SetDefault("alert.redis.addr", "localhost:6379")
	v.SetDefault("alert.redis.password", "")
	v.SetDefault("alert.redis.db", 0)
	v.SetDefault("alert.redis.key", "airwatch:alert_state")
	v.SetDefault("alert.smtp.host", "")
	v.SetDefault("alert.smtp.port", 587)
	v.SetDefault("alert.smtp.username", "")
	v.SetDefault("alert.smtp.password", "")
	v.SetDefault("alert.smtp.from", "")
	v.SetDefault("alert.smtp.use_tls", true)
	v.SetDefault("alert.smtp.timeout", "10s")

	// Integrations, all off until configured
	v.SetDefault("mqtt.broker_url", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "airwatch")
	v.SetDefault("mqtt.topic_prefix", "airwatch")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", false)
	v.SetDefault("mqtt.timeout", "10s")
	v.SetDefault("mqtt.ha_discovery", false)
	v.SetDefault("mqtt.ha_discovery_prefix", "homeassistant")
	v.SetDefault("webhook.enabled", true)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.include_readings", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "airwatch.events")
	v.SetDefault("kafka.timeout", "5s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("airwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/airwatch")
	}

	// Environment variable support: AW_SERVER_PORT=9090
	v.SetEnvPrefix("AW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
