package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"HTTP_ADDR", "DB_DRIVER", "DB_DSN", "HISTORY_BACKEND", "AI_PROVIDER", "AI_TEMPERATURE", "GATEWAY_TIMEOUT", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "sql", cfg.HistoryBackend)
	assert.Equal(t, "gateway", cfg.AIProvider)
	assert.Equal(t, 0.3, cfg.AITemperature)
	assert.Equal(t, 90*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("HISTORY_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AI_TEMPERATURE", "0.7")
	t.Setenv("GATEWAY_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "redis", cfg.HistoryBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 0.7, cfg.AITemperature)
	assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REDIS_DB", "x")
	t.Setenv("AI_TEMPERATURE", "-1")
	t.Setenv("GATEWAY_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 0.3, cfg.AITemperature)
	assert.Equal(t, 90*time.Second, cfg.GatewayTimeout)
}
