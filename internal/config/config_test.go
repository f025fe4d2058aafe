package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()

	t.Setenv("AUTH_SECRET", "secret")
	t.Setenv("STORAGE_SIGNING_KEY", "signing")
}

func unset(t *testing.T, key string) {
	t.Helper()

	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setRequired(t)
		unset(t, "APP_TIMEZONE")
		unset(t, "PORT")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.App.Port)
		assert.Equal(t, "UTC", cfg.App.Timezone)
		assert.Equal(t, 5*time.Minute, cfg.Storage.URLTTL)
		assert.Equal(t, 25, cfg.DB.MaxOpenConns)
		assert.True(t, cfg.Metrics.Enabled)
	})

	t.Run("Overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("APP_TIMEZONE", "Europe/Lisbon")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
		t.Setenv("METRICS_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		loc, err := cfg.Location()
		require.NoError(t, err)
		assert.Equal(t, "Europe/Lisbon", loc.String())
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
		assert.False(t, cfg.Metrics.Enabled)
	})

	t.Run("MissingSecret", func(t *testing.T) {
		setRequired(t)
		unset(t, "AUTH_SECRET")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("InvalidTimezone", func(t *testing.T) {
		setRequired(t)
		t.Setenv("APP_TIMEZONE", "Mars/Olympus")

		_, err := Load()
		assert.ErrorContains(t, err, "Mars/Olympus")
	})
}

func TestConfig_DatabaseOptions(t *testing.T) {
	var cfg Config
	cfg.DB.User = "church"
	cfg.DB.Password = "pw"
	cfg.DB.Host = "db"
	cfg.DB.Port = 5433
	cfg.DB.Name = "offertory"
	cfg.DB.MaxOpenConns = 10

	opts := cfg.DatabaseOptions()

	assert.Equal(t, "postgres://church:pw@db:5433/offertory?sslmode=disable", opts.URL)
	assert.Equal(t, 10, opts.MaxOpenConns)
}
