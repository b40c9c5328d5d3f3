package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the catalog service.
// Environment variables are parsed from the CATALOG_ prefix, e.g.
// CATALOG_HTTP_PORT, CATALOG_POSTGRES_DSN.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage. DBDriver selects postgres or sqlite; "auto" picks
	// postgres when a DSN is present, sqlite otherwise.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"catalog.db"`

	// Event pipeline. EmbeddedMirror runs the publisher and mirror
	// inside the API process; disable it when a standalone mirror
	// worker owns the event log, so only one publisher polls.
	EmbeddedMirror           bool `envconfig:"EMBEDDED_MIRROR" default:"true"`
	EventBufferSize          int  `envconfig:"EVENT_BUFFER_SIZE" default:"256"`
	PublisherBatch           int  `envconfig:"PUBLISHER_BATCH" default:"100"`
	PublisherIntervalSeconds int  `envconfig:"PUBLISHER_INTERVAL_SECONDS" default:"2"`
}

// ResolveDefaults derives DBDriver when set to "auto" and validates
// the result.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}
	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("CATALOG_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("CATALOG_SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a Config by parsing environment variables.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CATALOG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("db_driver", cfg.DBDriver).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Msg("configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config for tests: in-memory SQLite and a
// fast publisher loop.
func NewForTesting() *Config {
	return &Config{
		Environment:              EnvTesting,
		HTTPPort:                 0,
		DBDriver:                 "sqlite",
		SQLitePath:               ":memory:",
		EmbeddedMirror:           true,
		EventBufferSize:          64,
		PublisherBatch:           100,
		PublisherIntervalSeconds: 1,
	}
}
