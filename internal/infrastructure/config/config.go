package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when AQUARIUM_CONFIG is not set.
const DefaultPath = "configs/config.yaml"

// Config is the complete configuration of the aquarium core.
// It maps to configs/config.yaml.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Control   ControlConfig   `yaml:"control"`
	History   HistoryConfig   `yaml:"history"`
}

// SiteConfig identifies the installation.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"` // seconds
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig identifies the broker and this client.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig holds broker credentials. Prefer environment variables.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig controls reconnection backoff (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig controls the optional telemetry sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig holds server timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig controls the live event feed.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"` // seconds
	PongTimeout    int `yaml:"pong_timeout"`  // seconds
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr, file
	File   string `yaml:"file"`   // path when output is file
}

// ControlConfig selects which control loops run in this process and how
// often the controllers re-evaluate their safety rules.
type ControlConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Pump         bool          `yaml:"pump"`
	Lamp         bool          `yaml:"lamp"`
	Coordinator  bool          `yaml:"coordinator"`
}

// HistoryConfig controls event history retention.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Retention     time.Duration `yaml:"retention"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// Load reads configuration from path, then applies environment overrides
// and validates the result.
//
// Order of precedence (highest wins):
//  1. Environment variables (AQUARIUM_*)
//  2. The YAML file
//  3. Built-in defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// PathFromEnv returns AQUARIUM_CONFIG or DefaultPath.
func PathFromEnv() string {
	if v := os.Getenv("AQUARIUM_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "tank-001",
			Name:     "Aquarium",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/aquarium.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "aquarium-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "aquarium",
			Bucket:        "telemetry",
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Control: ControlConfig{
			TickInterval: 3 * time.Second,
			Pump:         true,
			Lamp:         true,
			Coordinator:  true,
		},
		History: HistoryConfig{
			Enabled:       true,
			Retention:     30 * 24 * time.Hour,
			PruneInterval: time.Hour,
		},
	}
}

// applyEnvOverrides applies AQUARIUM_* environment variables. Secrets
// should always come from here rather than the file.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"AQUARIUM_DATABASE_PATH":  &cfg.Database.Path,
		"AQUARIUM_MQTT_HOST":      &cfg.MQTT.Broker.Host,
		"AQUARIUM_MQTT_CLIENT_ID": &cfg.MQTT.Broker.ClientID,
		"AQUARIUM_MQTT_USERNAME":  &cfg.MQTT.Auth.Username,
		"AQUARIUM_MQTT_PASSWORD":  &cfg.MQTT.Auth.Password,
		"AQUARIUM_API_HOST":       &cfg.API.Host,
		"AQUARIUM_INFLUXDB_URL":   &cfg.InfluxDB.URL,
		"AQUARIUM_INFLUXDB_TOKEN": &cfg.InfluxDB.Token,
		"AQUARIUM_LOG_LEVEL":      &cfg.Logging.Level,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"AQUARIUM_MQTT_PORT": &cfg.MQTT.Broker.Port,
		"AQUARIUM_API_PORT":  &cfg.API.Port,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		*dst = n
	}

	if v := os.Getenv("AQUARIUM_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing AQUARIUM_TICK_INTERVAL: %w", err)
		}
		cfg.Control.TickInterval = d
	}
	return nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.Logging.Output == "file" && c.Logging.File == "" {
		errs = append(errs, "logging.file is required when logging.output is file")
	}

	if c.Control.TickInterval < 0 {
		errs = append(errs, "control.tick_interval must not be negative")
	}
	if !c.Control.Pump && !c.Control.Lamp && !c.Control.Coordinator {
		errs = append(errs, "control: at least one of pump, lamp or coordinator must run")
	}

	if c.History.Enabled {
		if c.History.Retention <= 0 {
			errs = append(errs, "history.retention must be positive")
		}
		if c.History.PruneInterval <= 0 {
			errs = append(errs, "history.prune_interval must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ReadTimeout returns the API read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// WriteTimeout returns the API write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// IdleTimeout returns the API idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
