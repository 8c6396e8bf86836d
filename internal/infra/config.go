package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"pluto"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"pluto"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"pluto"`
	PGMaxConns  int    `env:"PG_MAX_CONNS" envDefault:"20"`
	PGMinConns  int    `env:"PG_MIN_CONNS" envDefault:"2"`

	// Server
	APIPort     int    `env:"API_PORT" envDefault:"3100"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// Identity provider (bearer tokens presented by players)
	IdentityJWTSecret string `env:"IDENTITY_JWT_SECRET" envDefault:"change-me-in-production"`
	IdentityIssuer    string `env:"IDENTITY_ISSUER" envDefault:"pluto-identity"`

	// Session tokens minted for game backends
	SessionTokenSecret string `env:"SESSION_TOKEN_SECRET" envDefault:"change-me-in-production"`

	// Platform fee account (user row receiving FEE entries)
	PlatformAccountID string `env:"PLATFORM_ACCOUNT_ID" envDefault:"00000000-0000-0000-0000-000000000001"`

	// Background work
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15s"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	for name, secret := range map[string]string{
		"IDENTITY_JWT_SECRET":  c.IdentityJWTSecret,
		"SESSION_TOKEN_SECRET": c.SessionTokenSecret,
	} {
		if secret == "change-me-in-production" {
			return fmt.Errorf("%s is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev", name)
		}
		if len(secret) < 32 {
			return fmt.Errorf("%s is too short (%d chars); minimum 32 characters required", name, len(secret))
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
