// Package config loads application configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string `yaml:"host" env:"SERVER_HOST"`
	Port            int    `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     int    `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    int    `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout int    `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig configures the SQL database connection.
type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// AuthUser is a statically configured login.
type AuthUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// AuthConfig configures optional bearer authentication. Disabled by default
// so the unauthenticated surface matches local development expectations.
type AuthConfig struct {
	Enabled   bool       `yaml:"enabled" env:"AUTH_ENABLED"`
	JWTSecret string     `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	TokenTTL  int        `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
	Users     []AuthUser `yaml:"users"`
}

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" env:"RATELIMIT_ENABLED"`
	RequestsPerSecond int  `yaml:"requests_per_second" env:"RATELIMIT_RPS"`
	Burst             int  `yaml:"burst" env:"RATELIMIT_BURST"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RedisConfig configures the optional stats cache. Left empty, caching is
// disabled and all reads go to the store.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	TTL      int    `yaml:"ttl" env:"REDIS_TTL"`
}

// PomodoroConfig configures session behavior.
type PomodoroConfig struct {
	SweeperEnabled bool   `yaml:"sweeper_enabled" env:"POMODORO_SWEEPER_ENABLED"`
	SweepSchedule  string `yaml:"sweep_schedule" env:"POMODORO_SWEEP_SCHEDULE"`
}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Redis     RedisConfig     `yaml:"redis"`
	Pomodoro  PomodoroConfig  `yaml:"pomodoro"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15,
			WriteTimeout:    15,
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Auth: AuthConfig{
			TokenTTL: 3600,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Pomodoro: PomodoroConfig{
			SweepSchedule: "@every 1m",
		},
	}
}

// Load reads configuration from TASKPOM_CONFIG (or config/config.yaml when
// unset), then applies environment overrides. A missing file is not an
// error; defaults are used instead.
func Load() (*Config, error) {
	path := os.Getenv("TASKPOM_CONFIG")
	if path == "" {
		path = filepath.Join("config", "config.yaml")
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the runtime cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled but jwt_secret not set")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit enabled but requests_per_second not positive")
	}
	return nil
}

// ShutdownTimeout returns the configured graceful shutdown window.
func (c *ServerConfig) ShutdownWindow() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// Addr returns the host:port pair to bind.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
