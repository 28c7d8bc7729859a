package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"STAFF_SOURCE", "MEETING_STORE", "SESSION_STORE", "APP_PORT", "OPENAI_API_KEY", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, BackendFile, cfg.Scheduling.StaffSource)
	assert.Equal(t, "staff.json", cfg.Scheduling.StaffFile)
	assert.Equal(t, BackendFile, cfg.Scheduling.MeetingStore)
	assert.Equal(t, "meetings", cfg.Scheduling.MeetingsDir)
	assert.Equal(t, BackendMemory, cfg.Scheduling.SessionStore)
	assert.Equal(t, 30*time.Minute, cfg.Scheduling.SessionTTL())
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.False(t, cfg.LLM.Enabled())
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MEETING_STORE", "Redis")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6380")
	t.Setenv("SESSION_TTL_MINUTES", "5")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, BackendRedis, cfg.Scheduling.MeetingStore)
	assert.Equal(t, 5*time.Minute, cfg.Scheduling.SessionTTL())
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadRejectsBadBackends(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEETING_STORE", "floppy")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_ADDR", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid MEETING_STORE")
	assert.Contains(t, err.Error(), "REDIS_ADDR required for redis session store")
}

func TestValidatePostgresNeedsDSN(t *testing.T) {
	cfg := &Config{Scheduling: SchedulingConfig{
		StaffSource:  BackendPostgres,
		MeetingStore: BackendPostgres,
		SessionStore: BackendMemory,
	}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN required for postgres staff source")
	assert.Contains(t, err.Error(), "POSTGRES_DSN required for postgres meeting store")
}
