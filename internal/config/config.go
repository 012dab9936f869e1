// Package config loads the iamd process configuration.
//
// Sources are layered, each overriding the previous one:
//
//  1. built-in defaults
//  2. an optional YAML file (-config or IAM_CONFIG_FILE)
//  3. a dotenv file (-env-file, default ".env"; missing is fine)
//  4. IAM_* process environment variables
//  5. command-line flags
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goIAM "github.com/MrEthical07/goIAM"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	LogLevel       string        `yaml:"log_level"`
	LogDevelopment bool          `yaml:"log_development"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
	CORSOrigins    []string      `yaml:"cors_origins"`

	Redis   RedisConfig   `yaml:"redis"`
	Store   StoreConfig   `yaml:"store"`
	JWT     JWTConfig     `yaml:"jwt"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// KafkaConfig enables the Kafka audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	OTel    bool `yaml:"otel"`
}

// Defaults returns a configuration that runs locally against SQLite and a
// Redis on localhost. JWT.Secret is empty and must be provided.
func Defaults() Config {
	engine := goIAM.DefaultConfig()
	return Config{
		ListenAddr:    ":5001",
		LogLevel:      "info",
		ShutdownGrace: 10 * time.Second,
		CORSOrigins:   []string{"http://localhost:5173"},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: engine.Refresh.RedisPrefix,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "goiam.db",
		},
		JWT: JWTConfig{
			Issuer:     engine.JWT.Issuer,
			Audience:   engine.JWT.Audience,
			AccessTTL:  engine.JWT.AccessTTL,
			RefreshTTL: engine.JWT.RefreshTTL,
		},
		Kafka: KafkaConfig{
			Topic: "goiam.audit",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: engine.Audit.BufferSize,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks process-level settings. Engine settings are validated again
// by goIAM.Builder.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen address is required")
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres, DriverPgx:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		return errors.New("store DSN is required")
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis address is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required (IAM_JWT_SECRET)")
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	if c.ShutdownGrace < 0 {
		return errors.New("shutdown grace must be >= 0")
	}
	return nil
}

// Engine maps the process settings onto an Engine configuration.
func (c *Config) Engine() goIAM.Config {
	cfg := goIAM.DefaultConfig()
	cfg.JWT.Secret = []byte(c.JWT.Secret)
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.JWT.Audience = c.JWT.Audience
	cfg.JWT.AccessTTL = c.JWT.AccessTTL
	cfg.JWT.RefreshTTL = c.JWT.RefreshTTL
	cfg.Refresh.RedisPrefix = c.Redis.Prefix
	cfg.Audit.Enabled = c.Audit.Enabled
	if c.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = c.Audit.BufferSize
	}
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled
	return cfg
}
