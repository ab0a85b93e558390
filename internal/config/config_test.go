package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Env:     "development",
		JWT:     JWTConfig{SecretKey: "test-secret-key-minimum-32-chars"},
		Refresh: RefreshConfig{MaxFailures: 5},
		FeatureFlag: FeatureFlagConfig{
			Timeout: 5 * time.Second,
		},
		Locale: LocaleConfig{
			Supported: []string{"es", " en"},
			Default:   "es",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"skip auth in development", func(c *Config) { c.SkipAuth = true }, false},
		{"skip auth in staging", func(c *Config) { c.SkipAuth = true; c.Env = "staging" }, false},
		{"skip auth in production", func(c *Config) { c.SkipAuth = true; c.Env = "production" }, true},
		{"empty default locale", func(c *Config) { c.Locale.Default = "" }, true},
		{"default locale not supported", func(c *Config) { c.Locale.Default = "fr" }, true},
		{"zero flag timeout", func(c *Config) { c.FeatureFlag.Timeout = 0 }, true},
		{"zero refresh failure limit", func(c *Config) { c.Refresh.MaxFailures = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_SkipAuthInProductionSentinel(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.SkipAuth = true

	if err := cfg.Validate(); !errors.Is(err, ErrSkipAuthInProduction) {
		t.Errorf("Validate() error = %v, want %v", err, ErrSkipAuthInProduction)
	}
}

func TestValidate_TrimsLocales(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if cfg.Locale.Supported[1] != "en" {
		t.Errorf("Supported[1] = %q, want %q", cfg.Locale.Supported[1], "en")
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET_KEY", "test-secret-key-minimum-32-chars")
	t.Setenv("SUPPORTED_LOCALES", "es,en,pt")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.FeatureFlag.Timeout != 5*time.Second {
		t.Errorf("FeatureFlag.Timeout = %v, want 5s", cfg.FeatureFlag.Timeout)
	}
	if cfg.Refresh.MaxFailures != 5 {
		t.Errorf("Refresh.MaxFailures = %d, want 5", cfg.Refresh.MaxFailures)
	}
	if cfg.Refresh.CacheTTL != 0 {
		t.Errorf("Refresh.CacheTTL = %v, want 0 (result cache off by default)", cfg.Refresh.CacheTTL)
	}
	if len(cfg.Locale.Supported) != 3 {
		t.Errorf("len(Locale.Supported) = %d, want 3", len(cfg.Locale.Supported))
	}
	if cfg.IsProduction() || cfg.IsDevelopment() {
		t.Error("ENV=test should be neither production nor development")
	}
}

func TestLoad_RefusesSkipAuthInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET_KEY", "test-secret-key-minimum-32-chars")
	t.Setenv("SKIP_AUTH", "true")

	if _, err := Load(); !errors.Is(err, ErrSkipAuthInProduction) {
		t.Errorf("Load() error = %v, want %v", err, ErrSkipAuthInProduction)
	}
}
