package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testSecret is long enough to satisfy the 32-character minimum.
const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Host: "localhost", Port: 5432, Name: "station_registry", User: "registry",
		},
		Auth:    AuthConfig{JWTSecret: testSecret, TokenExpiry: "1h", BcryptCost: 10},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"missing db name", func(c *Config) { c.Database.Name = "" }},
		{"missing db user", func(c *Config) { c.Database.User = "" }},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "tooshort" }},
		{"missing token expiry", func(c *Config) { c.Auth.TokenExpiry = "" }},
		{"garbage token expiry", func(c *Config) { c.Auth.TokenExpiry = "soon" }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EVR_AUTH_JWT_SECRET", testSecret)

	cfg, err := Load(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.TokenExpiry != "1h" {
		t.Errorf("auth.token_expiry = %q, want 1h", cfg.Auth.TokenExpiry)
	}
	if !cfg.Security.RateLimit.Enabled {
		t.Error("rate limiting should default to enabled")
	}
	if cfg.Telemetry.MetricsPort != 9090 {
		t.Errorf("telemetry.metrics_port = %d, want 9090", cfg.Telemetry.MetricsPort)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("EVR_AUTH_JWT_SECRET", testSecret)
	t.Setenv("EVR_DATABASE_HOST", "db.internal")
	t.Setenv("EVR_AUTH_TOKEN_EXPIRY", "30m")

	cfg, err := Load(writeTempConfig(t, "database:\n  host: from-file\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("database.host = %q, want env override db.internal", cfg.Database.Host)
	}
	d, err := cfg.Auth.TokenExpiryDuration()
	if err != nil {
		t.Fatalf("TokenExpiryDuration: %v", err)
	}
	if d != 30*time.Minute {
		t.Errorf("token expiry = %v, want 30m", d)
	}
}

func TestLoad_MissingSecretFatal(t *testing.T) {
	// No EVR_AUTH_JWT_SECRET in the environment and none in the file.
	os.Unsetenv("EVR_AUTH_JWT_SECRET")

	if _, err := Load(writeTempConfig(t, "")); err == nil {
		t.Fatal("expected Load to fail without a JWT secret")
	}
}

func TestLoad_SecretExpansion(t *testing.T) {
	t.Setenv("INJECTED_SECRET", testSecret)
	t.Setenv("EVR_AUTH_JWT_SECRET", "${INJECTED_SECRET}")

	cfg, err := Load(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != testSecret {
		t.Errorf("jwt_secret = %q, want expanded value", cfg.Auth.JWTSecret)
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p", Name: "d", SSLMode: "disable",
	}
	want := "host=localhost port=5432 user=u password=p dbname=d sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN = %q, want %q", got, want)
	}
}

// writeTempConfig writes a minimal yaml config and returns its path so Load
// never picks up a stray config.yaml from the working directory.
func writeTempConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(extra), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
