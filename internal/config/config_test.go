package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:5000/")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:5000", cfg.BackendURL)
	assert.Equal(t, "8090", cfg.ViewPort)
	assert.Equal(t, "default", cfg.SessionID)
	assert.Equal(t, DefaultPlayback(), cfg.Playback)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.MySQL.Enabled())
	assert.Equal(t, "party-client-activity", cfg.Kafka.Topic)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend")
	t.Setenv("TRACK_END_WINDOW", "2000")
	t.Setenv("ADVANCE_DEBOUNCE", "1s")
	t.Setenv("ADVANCE_RETRIES", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("SPOTIFY_DEVICE_ID", "kitchen")
	t.Setenv("ALLOWED_ORIGINS", "http://a, http://b")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Playback.TrackEndWindow)
	assert.Equal(t, time.Second, cfg.Playback.AdvanceDebounce)
	assert.Equal(t, 5, cfg.Playback.AdvanceRetries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, "kitchen", cfg.DeviceID)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.AllowedOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Run("missing backend", func(t *testing.T) {
		t.Setenv("BACKEND_URL", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "BACKEND_URL")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("BACKEND_URL", "http://backend")
		t.Setenv("POLL_INTERVAL", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "POLL_INTERVAL")
	})

	t.Run("zero retries", func(t *testing.T) {
		t.Setenv("BACKEND_URL", "http://backend")
		t.Setenv("ADVANCE_RETRIES", "0")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "ADVANCE_RETRIES")
	})

	t.Run("negative window", func(t *testing.T) {
		t.Setenv("BACKEND_URL", "http://backend")
		t.Setenv("TRACK_END_WINDOW", "-5")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "TRACK_END_WINDOW")
	})
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VIEW_PORT=9999\n"), 0o600))

	t.Setenv("BACKEND_URL", "http://backend")
	t.Setenv("VIEW_PORT", "")
	os.Unsetenv("VIEW_PORT")

	cfg, loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "9999", cfg.ViewPort)
}

func TestMySQLDSN(t *testing.T) {
	cfg := Config{MySQL: MySQL{Host: "db", Port: "3306", User: "u", Password: "p", Database: "party"}}
	assert.Equal(t, "u:p@tcp(db:3306)/party?charset=utf8mb4&parseTime=True&loc=Local", cfg.MySQLDSN())
}
