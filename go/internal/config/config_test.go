package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Reservation.Window)
	assert.Equal(t, time.Second, cfg.Reservation.TickInterval)
	assert.Equal(t, "8081", cfg.Gateway.Port)
	assert.Equal(t, "RESERVATION_EVENTS", cfg.NATS.StreamName)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, `
log_level: debug
api:
  base_url: https://api.example.test
  timeout: 5s
reservation:
  window: 10m
  tick_interval: 500ms
gateway:
  allowed_origins: ["https://shop.example.test"]
redis:
  addr: redis:6379
  db: 2
nats:
  enabled: true
  url: nats://nats:4222
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.test", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Reservation.Window)
	assert.Equal(t, 500*time.Millisecond, cfg.Reservation.TickInterval)
	assert.Equal(t, 10*time.Second, cfg.Reservation.CleanupTimeout, "unset fields keep defaults")
	assert.Equal(t, []string{"https://shop.example.test"}, cfg.Gateway.AllowedOrigins)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())

	res := cfg.ReservationConfig()
	assert.Equal(t, 10*time.Minute, res.Window)

	gw := cfg.GatewayConfig()
	assert.Equal(t, 10*time.Minute, gw.Registry.Reservation.Window)
	assert.Equal(t, 5*time.Minute, gw.Registry.Retention)

	js := cfg.JetStreamConfig()
	assert.Equal(t, "nats://nats:4222", js.URL)
	assert.Equal(t, "reservation.events", js.SubjectPrefix)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "reservation:\n  window: 10m\n")
	t.Setenv("RESERVATION_WINDOW", "2m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Reservation.Window)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Gateway.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.GatewayConfig().JWTSecret)
}

func TestMalformedEnvKeepsValue(t *testing.T) {
	t.Setenv("RESERVATION_WINDOW", "soon")
	t.Setenv("REDIS_DB", "two")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Reservation.Window)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeFile(t, "reservation:\n  window: -1m\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "log_level: loud\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "api: [not, a, map]\n"))
	require.Error(t, err)
}
