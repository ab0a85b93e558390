package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrSkipAuthInProduction is returned when the development auth bypass is
// enabled in a production environment.
var ErrSkipAuthInProduction = errors.New("SKIP_AUTH cannot be enabled in production")

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"development"`

	// Development-only bypass of the auth stage
	SkipAuth bool `envconfig:"SKIP_AUTH" default:"false"`

	// Upstream application that receives requests passing the gate
	UpstreamURL string `envconfig:"UPSTREAM_URL" default:"http://localhost:3000"`

	// Redis is optional; caches and revocation checks are disabled without it
	RedisURL string `envconfig:"REDIS_URL"`

	// Path to the YAML access rules (routes, feature flags, role hierarchy)
	AccessConfigPath string `envconfig:"ACCESS_CONFIG_PATH"`

	JWT         JWTConfig
	Refresh     RefreshConfig
	FeatureFlag FeatureFlagConfig
	Locale      LocaleConfig
}

// JWTConfig holds access token verification configuration
type JWTConfig struct {
	SecretKey       string        `envconfig:"JWT_SECRET_KEY" required:"true"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`
}

// RefreshConfig holds the token refresh endpoint configuration
type RefreshConfig struct {
	// Origin of the application serving /api/auth/refresh
	Origin   string        `envconfig:"APP_ORIGIN" default:"http://localhost:3000"`
	Timeout  time.Duration `envconfig:"REFRESH_TIMEOUT" default:"10s"`
	CacheTTL time.Duration `envconfig:"REFRESH_CACHE_TTL" default:"0s"`

	// Repeated failures for one refresh token lock it out (Redis only)
	MaxFailures   int           `envconfig:"REFRESH_MAX_FAILURES" default:"5"`
	FailureWindow time.Duration `envconfig:"REFRESH_FAILURE_WINDOW" default:"1m"`
	Lockout       time.Duration `envconfig:"REFRESH_LOCKOUT" default:"5m"`
}

// FeatureFlagConfig holds the remote feature flag service configuration
type FeatureFlagConfig struct {
	APIURL   string        `envconfig:"NEXT_PUBLIC_API_URL" default:"http://localhost:3001"`
	Timeout  time.Duration `envconfig:"FEATURE_FLAG_TIMEOUT" default:"5s"`
	CacheTTL time.Duration `envconfig:"FEATURE_FLAG_CACHE_TTL" default:"30s"`
}

// LocaleConfig holds locale selection configuration
type LocaleConfig struct {
	Supported []string `envconfig:"SUPPORTED_LOCALES" default:"es,en"`
	Default   string   `envconfig:"DEFAULT_LOCALE" default:"es"`
}

// Load loads configuration from environment variables. In development a
// local .env file is read first when present.
func Load() (*Config, error) {
	if env := os.Getenv("ENV"); env == "" || env == "development" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read .env file: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express
func (c *Config) Validate() error {
	if c.SkipAuth && c.IsProduction() {
		return ErrSkipAuthInProduction
	}

	if c.Locale.Default == "" {
		return fmt.Errorf("DEFAULT_LOCALE must not be empty")
	}
	found := false
	for i, l := range c.Locale.Supported {
		c.Locale.Supported[i] = strings.TrimSpace(l)
		if c.Locale.Supported[i] == c.Locale.Default {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("DEFAULT_LOCALE %q is not in SUPPORTED_LOCALES", c.Locale.Default)
	}

	if c.FeatureFlag.Timeout <= 0 {
		return fmt.Errorf("FEATURE_FLAG_TIMEOUT must be positive")
	}
	if c.Refresh.MaxFailures <= 0 {
		return fmt.Errorf("REFRESH_MAX_FAILURES must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
