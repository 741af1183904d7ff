// Package config loads and validates the station registry configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the EVR_ prefix (e.g., EVR_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments.
//
// The JWT signing secret, the token expiry duration, and the database connection
// parameters are hard requirements: Validate() rejects a configuration missing any
// of them, and the process exits at startup rather than degrading into a server
// that cannot authenticate or persist anything.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// AuthConfig holds JWT issuance and verification configuration.
// JWTSecret and TokenExpiry are required; the server refuses to start without them.
type AuthConfig struct {
	// JWTSecret is the HMAC signing secret for bearer tokens.
	JWTSecret string `mapstructure:"jwt_secret"`
	// TokenExpiry is the lifetime of issued tokens as a Go duration string (e.g. "1h").
	TokenExpiry string `mapstructure:"token_expiry"`
	// BcryptCost is the work factor for password hashing.
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// RedisConfig holds optional Redis connection settings. When Addr is empty the
// rate limiter falls back to its in-memory token bucket implementation.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SecurityConfig holds security-related settings
type SecurityConfig struct {
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig holds CORS settings for the browser frontend
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitConfig holds request rate limiting settings
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// RequestsPerMinute applies to general API traffic per client IP.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	// AuthRequestsPerMinute applies to /api/auth/* to slow credential stuffing.
	AuthRequestsPerMinute int `mapstructure:"auth_requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	// MetricsPort is the side-channel port serving GET /metrics, kept off the
	// main API listener so the scrape path bypasses CORS and rate limiting.
	MetricsPort int `mapstructure:"metrics_port"`
}

// Load reads configuration from the given path (or default locations) plus the
// EVR_-prefixed environment, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/station-registry")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("EVR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested structures.
	// AutomaticEnv() alone doesn't surface nested keys through Unmarshal().
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in sensitive fields so secrets can be injected
	// indirectly by infrastructure tooling.
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Auth.JWTSecret = expandEnv(cfg.Auth.JWTSecret)
	cfg.Redis.Password = expandEnv(cfg.Redis.Password)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "station_registry")
	v.SetDefault("database.user", "registry")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Auth defaults. The secret deliberately has no default.
	v.SetDefault("auth.token_expiry", "1h")
	v.SetDefault("auth.bcrypt_cost", 10)

	// Redis is optional; empty addr means in-memory rate limiting
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_minute", 200)
	v.SetDefault("security.rate_limit.auth_requests_per_minute", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.metrics_port", 9090)
}

// bindEnvVars explicitly binds environment variables to config keys.
// viper.BindEnv only errors when called with zero keys; since every key here is a
// non-empty hardcoded string, any error indicates a programming bug.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.shutdown_timeout",

		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Auth
		"auth.jwt_secret",
		"auth.token_expiry",
		"auth.bcrypt_cost",

		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limit.enabled",
		"security.rate_limit.requests_per_minute",
		"security.rate_limit.auth_requests_per_minute",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.metrics_enabled",
		"telemetry.metrics_port",
	}

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var for %s: %w", key, err)
		}
	}

	return nil
}

// expandEnv expands ${VAR} or $VAR references against the process environment,
// leaving plain values untouched.
func expandEnv(value string) string {
	if strings.Contains(value, "$") {
		return os.ExpandEnv(value)
	}
	return value
}

// Validate checks that required configuration is present and well-formed.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set EVR_AUTH_JWT_SECRET; generate one with: openssl rand -hex 32)")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters, got %d", len(c.Auth.JWTSecret))
	}
	if c.Auth.TokenExpiry == "" {
		return fmt.Errorf("auth.token_expiry is required")
	}
	if _, err := time.ParseDuration(c.Auth.TokenExpiry); err != nil {
		return fmt.Errorf("auth.token_expiry is not a valid duration: %w", err)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	return nil
}

// TokenExpiryDuration returns the parsed token expiry. Validate() guarantees the
// string parses, so errors here indicate the config was mutated after load.
func (c *AuthConfig) TokenExpiryDuration() (time.Duration, error) {
	return time.ParseDuration(c.TokenExpiry)
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
