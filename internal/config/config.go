package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/offertory/internal/database"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Offertory"`
		Port int    `envconfig:"PORT" default:"8080"`
		// Timezone is the operating timezone used to compare receipt and bank dates by calendar day.
		Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`
		// Operator is recorded as the verifier for decisions taken in the TUI.
		Operator string `envconfig:"APP_OPERATOR"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"offertory"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	Auth struct {
		Secret string `envconfig:"AUTH_SECRET" required:"true"`
		Issuer string `envconfig:"AUTH_ISSUER" default:"offertory"`
	}

	Storage struct {
		BaseURL    string        `envconfig:"STORAGE_BASE_URL" default:"http://localhost:8080/files"`
		Dir        string        `envconfig:"STORAGE_DIR" default:"./data/receipts"`
		SigningKey string        `envconfig:"STORAGE_SIGNING_KEY" required:"true"`
		URLTTL     time.Duration `envconfig:"STORAGE_URL_TTL" default:"5m"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) DatabaseOptions() database.Options {
	return database.Options{
		URL:             c.ConnectionString(),
		MaxOpenConns:    c.DB.MaxOpenConns,
		MaxIdleConns:    c.DB.MaxIdleConns,
		ConnMaxLifetime: c.DB.ConnMaxLifetime,
	}
}

// Location resolves the operating timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.App.Timezone, err)
	}

	return loc, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
