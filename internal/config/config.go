package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	Store  StoreConfig  `yaml:"store"`
	Redis  RedisConfig  `yaml:"redis"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP listener and routing settings
type ServerConfig struct {
	Host                string   `yaml:"host" env:"SERVER_HOST"`
	Port                int      `yaml:"port" env:"PORT"`
	BlacklistPrefix     string   `yaml:"blacklist_prefix" env:"BLACKLIST_PREFIX"`
	HealthPrefix        string   `yaml:"health_prefix" env:"HEALTH_PREFIX"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds" env:"READ_TIMEOUT_SECONDS"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds" env:"WRITE_TIMEOUT_SECONDS"`
	CORSOrigins         []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

// AuthConfig holds the shared bearer secret
type AuthConfig struct {
	APIToken string `yaml:"api_token" env:"API_TOKEN"`
}

// StoreConfig selects and configures the blacklist store backend
type StoreConfig struct {
	Driver                 string         `yaml:"driver" env:"STORE_DRIVER"`
	DatabaseURL            string         `yaml:"database_url" env:"DATABASE_URL"`
	MaxOpenConns           int            `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns           int            `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetimeMinutes int            `yaml:"conn_max_lifetime_minutes" env:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DynamoDB               DynamoDBConfig `yaml:"dynamodb"`
}

// DynamoDBConfig holds settings for the DynamoDB store backend
type DynamoDBConfig struct {
	Table    string `yaml:"table" env:"DYNAMODB_TABLE"`
	Region   string `yaml:"region" env:"AWS_REGION"`
	Endpoint string `yaml:"endpoint" env:"DYNAMODB_ENDPOINT"`
}

// RedisConfig holds the optional lookup cache settings
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	URL        string `yaml:"url" env:"REDIS_URL"`
	TTLSeconds int    `yaml:"ttl_seconds" env:"REDIS_TTL_SECONDS"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level            string `yaml:"level" env:"LOG_LEVEL"`
	DisableRedaction bool   `yaml:"disable_redaction" env:"LOG_DISABLE_REDACTION"`
}

// Addr returns the host:port the server listens on.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ReadTimeout returns the server read timeout as a Duration.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout as a Duration.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// ConnMaxLifetime returns the pool connection lifetime as a Duration.
func (c StoreConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// TTL returns the cache entry lifetime as a Duration.
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Load reads and parses the configuration file. A missing file is not an
// error: every setting has a default or an environment override.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.BlacklistPrefix == "" {
		cfg.Server.BlacklistPrefix = "/blacklist"
	}
	if cfg.Server.HealthPrefix == "" {
		cfg.Server.HealthPrefix = "/health"
	}
	cfg.Server.BlacklistPrefix = normalizePrefix(cfg.Server.BlacklistPrefix)
	cfg.Server.HealthPrefix = normalizePrefix(cfg.Server.HealthPrefix)
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 15
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverPostgres
	}
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	if cfg.Store.MaxOpenConns == 0 {
		cfg.Store.MaxOpenConns = 25
	}
	if cfg.Store.MaxIdleConns == 0 {
		cfg.Store.MaxIdleConns = 5
	}
	if cfg.Store.ConnMaxLifetimeMinutes == 0 {
		cfg.Store.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Store.DynamoDB.Table == "" {
		cfg.Store.DynamoDB.Table = "blacklist_entries"
	}
	if cfg.Store.DynamoDB.Region == "" {
		cfg.Store.DynamoDB.Region = "us-east-1"
	}

	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 3600
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks settings that have no safe default.
func (cfg *Config) Validate() error {
	switch cfg.Store.Driver {
	case DriverPostgres:
		if cfg.Store.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store")
		}
	case DriverDynamoDB:
		if cfg.Store.DynamoDB.Table == "" {
			return errors.New("config: DYNAMODB_TABLE is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Server.BlacklistPrefix == cfg.Server.HealthPrefix {
		return fmt.Errorf("config: blacklist and health prefixes must differ (both %q)", cfg.Server.HealthPrefix)
	}
	return nil
}

func normalizePrefix(p string) string {
	p = "/" + strings.Trim(strings.TrimSpace(p), "/")
	return p
}
