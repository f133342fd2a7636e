package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "priorauth-api", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "priorauth", cfg.Database.Name)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 0.1, cfg.Tracing.SampleRate)
	assert.Equal(t, float64(100), cfg.RateLimit.RequestsPerSecond)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_SSLMODE", "verify-full")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("TRACING_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "verify-full", cfg.Database.SSLMode)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing JWT secret is rejected", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("short JWT secret rejected in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "short")
		t.Setenv("DB_PASSWORD", "pw")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("sslmode disable rejected in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("DB_PASSWORD", "pw")
		t.Setenv("DB_SSLMODE", "disable")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_SSLMODE")
	})

	t.Run("missing DB password rejected outside development", func(t *testing.T) {
		t.Setenv("APP_ENV", "staging")
		t.Setenv("JWT_SECRET", "test-secret")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_PASSWORD")
	})
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Name:     "priorauth",
		User:     "app",
		Password: "secret",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=localhost user=app password=secret dbname=priorauth port=5432 sslmode=require Timezone=UTC",
		d.DSN())
}
