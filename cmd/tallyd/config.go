package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config is read from TALLY_* environment variables.
type Config struct {
	Addr          string        `envconfig:"ADDR" default:":8080"`
	Tolerance     string        `envconfig:"TOLERANCE" default:"0.01"`
	PageSize      int           `envconfig:"PAGE_SIZE" default:"500"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"0s"`
	KafkaBrokers  []string      `envconfig:"KAFKA_BROKERS"`
	KafkaTopic    string        `envconfig:"KAFKA_TOPIC" default:"tally.events"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	Audit         bool          `envconfig:"AUDIT" default:"false"`
}

// loadConfig loads .env files when present, then the environment.
func loadConfig(logger *slog.Logger, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}

	var cfg Config
	if err := envconfig.Process("tally", &cfg); err != nil {
		return nil, fmt.Errorf("tallyd: read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	tol, err := decimal.NewFromString(c.Tolerance)
	if err != nil {
		return fmt.Errorf("tallyd: invalid TALLY_TOLERANCE %q: %w", c.Tolerance, err)
	}
	if tol.IsNegative() {
		return fmt.Errorf("tallyd: TALLY_TOLERANCE %q must not be negative", c.Tolerance)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("tallyd: TALLY_PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	return nil
}

// tolerance returns the parsed tolerance. validate has accepted it.
func (c *Config) tolerance() decimal.Decimal {
	return decimal.RequireFromString(c.Tolerance)
}

// level maps LogLevel to a slog level, defaulting to info.
func (c *Config) level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
