package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for RentState Hub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Liveness LivenessConfig `yaml:"liveness"`
	Notifier NotifierConfig `yaml:"notifier"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Devices  DevicesConfig  `yaml:"devices"`
}

// ServiceConfig contains instance-level information.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// UpstreamConfig contains the base URLs of the real backend servers this hub
// fronts. Timeout applies to every upstream call.
type UpstreamConfig struct {
	AuthURL       string `yaml:"auth_url"`
	UsersURL      string `yaml:"users_url"`
	PropertiesURL string `yaml:"properties_url"`
	Timeout       int    `yaml:"timeout"`
}

// CacheConfig controls how long cached sessions and property lists stay valid.
type CacheConfig struct {
	TTLHours int `yaml:"ttl_hours"`
}

// LivenessConfig controls the device liveness monitor.
type LivenessConfig struct {
	Interval  int `yaml:"interval"`
	Threshold int `yaml:"threshold"`
}

// NotifierConfig contains the notification dispatcher settings.
type NotifierConfig struct {
	Interval int            `yaml:"interval"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Whatsapp WhatsappConfig `yaml:"whatsapp"`
}

// SMTPConfig contains outbound mail settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Subject  string `yaml:"subject"`
}

// WhatsappConfig contains the WhatsApp gateway settings.
type WhatsappConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// MQTTConfig contains MQTT broker connection settings for the device ingest
// bridge.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// InfluxDBConfig contains InfluxDB connection settings for telemetry.
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

// DevicesConfig contains device catalog settings.
type DevicesConfig struct {
	CatalogPath string `yaml:"catalog_path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RENTSTATE_SECTION_KEY
// For example: RENTSTATE_DATABASE_PATH, RENTSTATE_API_PORT
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
		Service: ServiceConfig{
			ID:   "hub-001",
			Name: "RentState Hub",
		},
		Database: DatabaseConfig{
			Path:        "./data/rentstatehub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Upstream: UpstreamConfig{
			Timeout: 3,
		},
		Cache: CacheConfig{
			TTLHours: 24,
		},
		Liveness: LivenessConfig{
			Interval:  5,
			Threshold: 3,
		},
		Notifier: NotifierConfig{
			Interval: 5,
			SMTP: SMTPConfig{
				Port:    587,
				Subject: "RentState Notification Mail",
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "rentstate-hub",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Devices: DevicesConfig{
			CatalogPath: "./config/device_types.json",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RENTSTATE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("RENTSTATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("RENTSTATE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("RENTSTATE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Upstream servers
	if v := os.Getenv("RENTSTATE_UPSTREAM_AUTH_URL"); v != "" {
		cfg.Upstream.AuthURL = v
	}
	if v := os.Getenv("RENTSTATE_UPSTREAM_USERS_URL"); v != "" {
		cfg.Upstream.UsersURL = v
	}
	if v := os.Getenv("RENTSTATE_UPSTREAM_PROPERTIES_URL"); v != "" {
		cfg.Upstream.PropertiesURL = v
	}

	// Notifier credentials
	if v := os.Getenv("RENTSTATE_SMTP_USERNAME"); v != "" {
		cfg.Notifier.SMTP.Username = v
	}
	if v := os.Getenv("RENTSTATE_SMTP_PASSWORD"); v != "" {
		cfg.Notifier.SMTP.Password = v
	}
	if v := os.Getenv("RENTSTATE_WHATSAPP_TOKEN"); v != "" {
		cfg.Notifier.Whatsapp.Token = v
	}

	// MQTT
	if v := os.Getenv("RENTSTATE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RENTSTATE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RENTSTATE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("RENTSTATE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Upstream.AuthURL == "" {
		errs = append(errs, "upstream.auth_url is required")
	}
	if c.Upstream.UsersURL == "" {
		errs = append(errs, "upstream.users_url is required")
	}
	if c.Upstream.PropertiesURL == "" {
		errs = append(errs, "upstream.properties_url is required")
	}
	if c.Upstream.Timeout < 1 {
		errs = append(errs, "upstream.timeout must be at least 1 second")
	}

	if c.Cache.TTLHours < 1 {
		errs = append(errs, "cache.ttl_hours must be at least 1")
	}

	if c.Liveness.Interval < 1 {
		errs = append(errs, "liveness.interval must be at least 1 second")
	}
	if c.Liveness.Threshold < 1 {
		errs = append(errs, "liveness.threshold must be at least 1")
	}

	if c.Notifier.Interval < 1 {
		errs = append(errs, "notifier.interval must be at least 1 second")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetUpstreamTimeout returns the upstream request timeout as a Duration.
func (c *Config) GetUpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.Timeout) * time.Second
}

// GetCacheTTL returns the session/property cache TTL as a Duration.
func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// GetLivenessInterval returns the monitor sweep interval as a Duration.
func (c *Config) GetLivenessInterval() time.Duration {
	return time.Duration(c.Liveness.Interval) * time.Second
}

// GetNotifierInterval returns the dispatcher drain interval as a Duration.
func (c *Config) GetNotifierInterval() time.Duration {
	return time.Duration(c.Notifier.Interval) * time.Second
}
