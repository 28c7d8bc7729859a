package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/config"
	"github.com/spec-kit/voice-scheduler/internal/repository"
	"github.com/spec-kit/voice-scheduler/internal/service"
)

const staffJSON = `[{"name": "Jackie", "title": "Manager", "availability": ["9:00 AM", "2:00 PM"]}]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	staffFile := filepath.Join(dir, "staff.json")
	require.NoError(t, os.WriteFile(staffFile, []byte(staffJSON), 0o644))
	infoFile := filepath.Join(dir, "description.json")
	require.NoError(t, os.WriteFile(infoFile, []byte(`{"store_name":"Acme","store_description":"Anvils."}`), 0o644))

	return &config.Config{
		Scheduling: config.SchedulingConfig{
			StaffSource:       config.BackendFile,
			StaffFile:         staffFile,
			StoreInfoFile:     infoFile,
			MeetingStore:      config.BackendFile,
			MeetingsDir:       filepath.Join(dir, "meetings"),
			SessionStore:      config.BackendMemory,
			SessionTTLMinutes: 5,
		},
	}
}

func book(t *testing.T, c *Components, session string) service.TurnResult {
	t.Helper()
	ctx := context.Background()
	for _, text := range []string{"schedule a meeting", "Jackie"} {
		_, err := c.Dialogue.HandleUtterance(ctx, session, text)
		require.NoError(t, err)
	}
	res, err := c.Dialogue.HandleUtterance(ctx, session, "9 am")
	require.NoError(t, err)
	return res
}

func TestBuildWithFileBackends(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	c, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close(ctx)

	assert.Equal(t, "Welcome to Acme! How may I assist you today?", c.Dialogue.Greeting())
	assert.Equal(t, []string{"Jackie"}, c.Staff.Names())

	res := book(t, c, "call-1")
	assert.Equal(t, service.OutcomeBooked, res.Outcome)

	entries, err := os.ReadDir(cfg.Scheduling.MeetingsDir)
	require.NoError(t, err)
	var records int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			records++
		}
	}
	assert.Equal(t, 1, records)
}

func TestBuildWithRedisBackends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.Scheduling.MeetingStore = config.BackendRedis
	cfg.Scheduling.SessionStore = config.BackendRedis

	c, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close(ctx)
	require.True(t, c.Redis.Enabled())

	res := book(t, c, "call-1")
	assert.Equal(t, service.OutcomeBooked, res.Outcome)

	// The slot is shared across sessions through redis.
	res = book(t, c, "call-2")
	assert.Equal(t, service.OutcomeSlotUnavailable, res.Outcome)

	all, err := c.Meetings.List(ctx, repository.MeetingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.True(t, mr.Exists("conversation:call-1"))
}

func TestBuildMissingStaffFileGivesEmptyDirectory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Scheduling.StaffFile = filepath.Join(t.TempDir(), "absent.json")
	cfg.Scheduling.MeetingStore = config.BackendMemory

	c, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close(ctx)
	assert.Equal(t, 0, c.Staff.Len())
}

func TestBuildRejectsBrokenStaffFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Scheduling.StaffFile, []byte(`{`), 0o644))

	_, err := Build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
