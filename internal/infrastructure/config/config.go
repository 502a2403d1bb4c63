package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// maxIOA is the largest three-octet information object address.
const maxIOA = 1<<24 - 1

// Config is the root configuration structure for the IEC 104 bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig      `yaml:"site"`
	Database DatabaseConfig  `yaml:"database"`
	MQTT     MQTTConfig      `yaml:"mqtt"`
	InfluxDB InfluxDBConfig  `yaml:"influxdb"`
	Logging  LoggingConfig   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	API      APIConfig       `yaml:"api"`
	OPCUA    OPCUAConfig     `yaml:"opcua"`
	Channels []ChannelConfig `yaml:"channels"`
	Bridge   BridgeConfig    `yaml:"bridge"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// APIConfig contains the read-only operator HTTP API settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP server timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains settings for the live point stream.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// OPCUAConfig contains the optional OPC UA acquisition session.
// Monitored nodes come from channels[].node_id.
type OPCUAConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	SecurityMode    string `yaml:"security_mode"`
	SecurityPolicy  string `yaml:"security_policy"`
	ApplicationName string `yaml:"application_name"`

	// PublishInterval is the subscription publishing interval in milliseconds.
	// Default: 250
	PublishInterval int `yaml:"publish_interval"`

	// SamplingInterval is the per-item sampling interval in milliseconds.
	// 0 lets the server choose.
	SamplingInterval int `yaml:"sampling_interval"`
}

// ChannelConfig declares one acquisition channel.
//
// Source channels carry a topic or node_id that feeds them. IEC 104 target
// channels carry an ioa; values they accept are published to the gateway.
type ChannelConfig struct {
	// ID is the unique channel identifier (e.g. "frequency", "frequency_iec104").
	ID string `yaml:"id"`

	// ValueType is the declared kind (BOOLEAN, SHORT, FLOAT, ...).
	// Empty leaves the channel untyped.
	ValueType string `yaml:"value_type"`

	// Topic is the MQTT telemetry topic feeding this channel.
	Topic string `yaml:"topic,omitempty"`

	// NodeID is the OPC UA node feeding this channel (e.g. "ns=2;s=Bay1.Frequency").
	NodeID string `yaml:"node_id,omitempty"`

	// IOA is the IEC 104 information object address. Zero means the
	// channel is not an IEC 104 target.
	IOA int `yaml:"ioa,omitempty"`
}

// Kind parses ValueType.
func (c ChannelConfig) Kind() (value.Kind, error) {
	return value.ParseKind(c.ValueType)
}

// BridgeConfig contains IEC 104 forwarding settings.
type BridgeConfig struct {
	// ID identifies this bridge instance in health messages.
	ID string `yaml:"id"`

	// TargetSuffix is appended to source IDs to name IEC 104 channels.
	// Default: "_iec104"
	TargetSuffix string `yaml:"target_suffix"`

	// Sources lists the channels to forward. Empty selects the defaults
	// (healthStatus, breakerPosition, frequency).
	Sources []string `yaml:"sources"`

	// PointQoS is the MQTT QoS for outbound point messages.
	PointQoS int `yaml:"point_qos"`

	// HealthInterval is the health publishing interval in seconds.
	HealthInterval int `yaml:"health_interval"`

	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig controls the forward log.
type AuditConfig struct {
	Enabled   bool `yaml:"enabled"`
	QueueSize int  `yaml:"queue_size"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_OPCUA_ENDPOINT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/iec104bridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-iec104",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9104",
			Path:    "/metrics",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8104,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 60,
				Idle:  120,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		OPCUA: OPCUAConfig{
			SecurityMode:    "None",
			SecurityPolicy:  "None",
			ApplicationName: "Gray Logic IEC 104 Bridge",
			PublishInterval: 250,
		},
		Bridge: BridgeConfig{
			ID:             "iec104-bridge-01",
			TargetSuffix:   "_iec104",
			PointQoS:       1,
			HealthInterval: 30,
			Audit: AuditConfig{
				Enabled:   true,
				QueueSize: 1024,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Metrics
	if v := os.Getenv("GRAYLOGIC_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// OPC UA
	if v := os.Getenv("GRAYLOGIC_OPCUA_ENDPOINT"); v != "" {
		cfg.OPCUA.Endpoint = v
	}
	if v := os.Getenv("GRAYLOGIC_OPCUA_USERNAME"); v != "" {
		cfg.OPCUA.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_OPCUA_PASSWORD"); v != "" {
		cfg.OPCUA.Password = v
	}

	// Bridge
	if v := os.Getenv("GRAYLOGIC_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Bridge.Audit.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when bridge.audit is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Bridge.PointQoS < 0 || c.Bridge.PointQoS > 2 {
		errs = append(errs, "bridge.point_qos must be 0, 1, or 2")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics are enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.OPCUA.Enabled && c.OPCUA.Endpoint == "" {
		errs = append(errs, "opcua.endpoint is required when opcua is enabled (set GRAYLOGIC_OPCUA_ENDPOINT)")
	}

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.Bridge.HealthInterval < 0 {
		errs = append(errs, "bridge.health_interval must not be negative")
	}

	errs = append(errs, c.validateChannels()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateChannels checks channel declarations for duplicates and
// inconsistent feeds.
func (c *Config) validateChannels() []string {
	var errs []string
	ids := make(map[string]bool, len(c.Channels))
	ioas := make(map[int]string)

	for i, ch := range c.Channels {
		if ch.ID == "" {
			errs = append(errs, fmt.Sprintf("channels[%d].id is required", i))
			continue
		}
		if ids[ch.ID] {
			errs = append(errs, fmt.Sprintf("channels[%d].id %q is duplicated", i, ch.ID))
		}
		ids[ch.ID] = true

		if _, err := ch.Kind(); err != nil {
			errs = append(errs, fmt.Sprintf("channels[%d].value_type: %v", i, err))
		}

		if ch.Topic != "" && ch.NodeID != "" {
			errs = append(errs, fmt.Sprintf("channels[%d] cannot have both topic and node_id", i))
		}
		if ch.NodeID != "" && !c.OPCUA.Enabled {
			errs = append(errs, fmt.Sprintf("channels[%d].node_id requires opcua.enabled", i))
		}

		if ch.IOA < 0 || ch.IOA > maxIOA {
			errs = append(errs, fmt.Sprintf("channels[%d].ioa must be between 1 and %d", i, maxIOA))
		} else if ch.IOA > 0 {
			if other, dup := ioas[ch.IOA]; dup {
				errs = append(errs, fmt.Sprintf("channels[%d].ioa %d already used by %q", i, ch.IOA, other))
			}
			ioas[ch.IOA] = ch.ID
		}
	}

	return errs
}

// HealthInterval returns the bridge health interval as a Duration.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// PublishIntervalDuration returns the OPC UA publishing interval as a Duration.
func (c OPCUAConfig) PublishIntervalDuration() time.Duration {
	return time.Duration(c.PublishInterval) * time.Millisecond
}

// SamplingIntervalDuration returns the OPC UA sampling interval as a Duration.
func (c OPCUAConfig) SamplingIntervalDuration() time.Duration {
	return time.Duration(c.SamplingInterval) * time.Millisecond
}
