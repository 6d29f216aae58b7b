package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("POSTGRES_DSN", "postgres://bot@localhost/bot?sslmode=disable")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, 10, cfg.PageSize)
	require.Equal(t, 5*time.Minute, cfg.CheckInterval)
	require.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORTAL_API_BASE_URL", "https://portal.example.com")
	t.Setenv("PORTAL_API_TIMEOUT", "3s")
	t.Setenv("PORTAL_API_RPS", "2.5")
	t.Setenv("PAGE_SIZE", "20")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://portal.example.com", cfg.API.BaseURL)
	require.Equal(t, 3*time.Second, cfg.API.Timeout)
	require.Equal(t, 2.5, cfg.API.RPS)
	require.Equal(t, 20, cfg.PageSize)
	require.Equal(t, 2, cfg.RedisDB)
	require.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	_, err := Load()
	require.Error(t, err)

	setRequired(t)
	t.Setenv("PAGE_SIZE", "ten")
	_, err = Load()
	require.ErrorContains(t, err, "PAGE_SIZE")
}

func TestValidate(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.PageSize = 0
	require.Error(t, cfg.Validate())

	cfg.PageSize = 10
	cfg.CheckInterval = time.Second
	require.Error(t, cfg.Validate())

	cfg.CheckInterval = time.Minute
	cfg.LogLevel = "trace"
	require.Error(t, cfg.Validate())
}
