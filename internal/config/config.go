package config

import (
	"fmt"
	"net"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Shortener     ShortenerConfig
	Sweeper       SweeperConfig
	Auth          AuthConfig
	App           AppConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" required:"true"`
	Host            string        `envconfig:"SERVER_HOST" required:"true"`
	BaseURL         string        `envconfig:"SERVER_BASE_URL" required:"true"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" required:"true"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" required:"true"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" required:"true"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" required:"true"`
	RequestTimeout  time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"5s"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host           string `envconfig:"DB_HOST" required:"true"`
	Port           string `envconfig:"DB_PORT" required:"true"`
	User           string `envconfig:"DB_USER" required:"true"`
	Password       string `envconfig:"DB_PASSWORD" required:"true"`
	Name           string `envconfig:"DB_NAME" required:"true"`
	SSLMode        string `envconfig:"DB_SSLMODE" required:"true"`
	MaxConns       int32  `envconfig:"DB_MAX_CONNS" required:"true"`
	MinConns       int32  `envconfig:"DB_MIN_CONNS" required:"true"`
	MigrateOnStart bool   `envconfig:"DB_MIGRATE_ON_START" default:"true"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.User == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max connections must be positive")
	}
	if c.MinConns <= 0 {
		return fmt.Errorf("min connections must be positive")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections (%d) cannot be greater than max connections (%d)", c.MinConns, c.MaxConns)
	}

	validSSLModes := map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	if !validSSLModes[c.SSLMode] {
		return fmt.Errorf("invalid SSL mode: %s (must be one of: disable, require, verify-ca, verify-full)", c.SSLMode)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds the redirect cache configuration. When Enabled is false
// the process falls back to an in-process cache.
type RedisConfig struct {
	Enabled      bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Addr         string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"REDIS_PASSWORD"`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"500ms"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"500ms"`
	KeyPrefix    string        `envconfig:"REDIS_KEY_PREFIX" default:"cached_link:"`
	SafetyTTL    time.Duration `envconfig:"CACHE_SAFETY_TTL" default:"0s"` // 0 disables
}

// Validate validates the redis configuration.
func (c *RedisConfig) Validate() error {
	if c.SafetyTTL < 0 {
		return fmt.Errorf("cache safety TTL cannot be negative")
	}
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis db cannot be negative")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("redis pool size must be positive")
	}
	if c.KeyPrefix == "" {
		return fmt.Errorf("redis key prefix cannot be empty")
	}
	return nil
}

// ShortenerConfig tunes code allocation and redirect caching.
type ShortenerConfig struct {
	CodeLength    int           `envconfig:"SHORTENER_CODE_LENGTH" default:"6"`
	MaxRetries    int           `envconfig:"SHORTENER_MAX_RETRIES" default:"10"`
	WarmThreshold int64         `envconfig:"SHORTENER_WARM_THRESHOLD" default:"5"`
	StoreTimeout  time.Duration `envconfig:"SHORTENER_STORE_TIMEOUT" default:"2s"`
}

// Validate validates the shortener configuration.
func (c *ShortenerConfig) Validate() error {
	if c.CodeLength < 3 || c.CodeLength > 64 {
		return fmt.Errorf("code length must be between 3 and 64, got %d", c.CodeLength)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}
	if c.WarmThreshold < 2 {
		return fmt.Errorf("warm threshold must be at least 2, got %d", c.WarmThreshold)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store timeout must be positive")
	}
	return nil
}

// SweeperConfig controls the in-process expiry sweeper.
type SweeperConfig struct {
	Enabled  bool          `envconfig:"SWEEPER_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"SWEEPER_INTERVAL" default:"1m"`
}

// Validate validates the sweeper configuration.
func (c *SweeperConfig) Validate() error {
	if c.Enabled && c.Interval <= 0 {
		return fmt.Errorf("sweeper interval must be positive")
	}
	return nil
}

// AuthConfig maps bearer tokens to subject ids, e.g. AUTH_TOKENS="t0k3n:alice,s3cr3t:bob".
type AuthConfig struct {
	Tokens map[string]string `envconfig:"AUTH_TOKENS"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	for token, subject := range c.Tokens {
		if token == "" {
			return fmt.Errorf("auth token cannot be empty")
		}
		if subject == "" {
			return fmt.Errorf("auth subject for a token cannot be empty")
		}
	}
	return nil
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" required:"true"`   // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" required:"true"` // debug, info, warn, error
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// ObservabilityConfig holds service identification reported by the health endpoint.
type ObservabilityConfig struct {
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"shortlink"`
	ServiceVersion string `envconfig:"OTEL_SERVICE_VERSION" default:"dev"`
}

// Validate validates the observability configuration.
func (c *ObservabilityConfig) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	return nil
}

type section struct {
	name     string
	target   any
	validate func() error
}

// Load loads configuration from environment variables only.
// (.env loading happens in internal/app for dev and test.)
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []section{
		{"Server", &cfg.Server, cfg.Server.Validate},
		{"Database", &cfg.Database, cfg.Database.Validate},
		{"Redis", &cfg.Redis, cfg.Redis.Validate},
		{"Shortener", &cfg.Shortener, cfg.Shortener.Validate},
		{"Sweeper", &cfg.Sweeper, cfg.Sweeper.Validate},
		{"Auth", &cfg.Auth, cfg.Auth.Validate},
		{"App", &cfg.App, cfg.App.Validate},
		{"Observability", &cfg.Observability, cfg.Observability.Validate},
	}

	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}
