package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`
	InstanceID  string `env:"INSTANCE_ID"`

	// Comma-separated origins allowed to open viewer websockets.
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	IngestAPIKey    string  `env:"INGEST_API_KEY"`
	IngestRateLimit float64 `env:"INGEST_RATE_LIMIT" default:"50"`
	IngestRateBurst int     `env:"INGEST_RATE_BURST" default:"100"`

	CurrencySign         string        `env:"CURRENCY_SIGN" default:"🌸"`
	SettleInterval       time.Duration `env:"SETTLE_INTERVAL" default:"2s"`
	MinAccountAge        time.Duration `env:"MIN_ACCOUNT_AGE" default:"120h"` // 5 days
	MinMembershipAge     time.Duration `env:"MIN_MEMBERSHIP_AGE" default:"24h"`
	RequireMembershipAge bool          `env:"REQUIRE_MEMBERSHIP_AGE" default:"false"`
}

// Origins returns the parsed ALLOWED_ORIGINS list.
func (c *Config) Origins() []string {
	var origins []string
	for o := range strings.SplitSeq(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsDevelopment reports whether the app runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":   cfg.DatabaseURL,
		"REDIS_URL":      cfg.RedisURL,
		"INGEST_API_KEY": cfg.IngestAPIKey,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.IngestAPIKey) < 16 {
		return errors.New("INGEST_API_KEY must be at least 16 characters")
	}
	if cfg.CurrencySign == "" {
		return errors.New("CURRENCY_SIGN must not be empty")
	}
	if cfg.SettleInterval <= 0 {
		return fmt.Errorf("SETTLE_INTERVAL must be positive, got %s", cfg.SettleInterval)
	}
	if cfg.MinAccountAge < 0 || cfg.MinMembershipAge < 0 {
		return errors.New("MIN_ACCOUNT_AGE and MIN_MEMBERSHIP_AGE must not be negative")
	}
	if cfg.IngestRateLimit <= 0 || cfg.IngestRateBurst <= 0 {
		return errors.New("INGEST_RATE_LIMIT and INGEST_RATE_BURST must be positive")
	}

	if cfg.AppEnv == "production" {
		if err := requireSecureSSL(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	return nil
}

func requireSecureSSL(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
