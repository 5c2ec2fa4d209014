package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []int64{1, 22, -5}, parseIDs(" 1, 22,,x,-5 "))
	assert.Empty(t, parseIDs(""))
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "REGISTRATION_MINUTES", "ROUND_PAUSE_SECONDS", "BROADCAST_RATE", "JWT_EXPIRES_HOURS"} {
		t.Setenv(k, "")
	}
	cfg := loadConfig()
	assert.Equal(t, "5175", cfg.Port)
	assert.Equal(t, 30, cfg.Settings.RegistrationMinutes)
	assert.Equal(t, 30*time.Second, cfg.Settings.RoundPause)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TTL)
	assert.Equal(t, float64(20), cfg.BroadcastRate)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("REGISTRATION_MINUTES", "5")
	t.Setenv("GAME_SCHEDULE_HOUR", "18")
	t.Setenv("ROUND_PAUSE_SECONDS", "0")
	t.Setenv("PRIZE_AMOUNT", "not-a-number")
	t.Setenv("ADMIN_IDS", "42")
	cfg := loadConfig()
	assert.Equal(t, 5, cfg.Settings.RegistrationMinutes)
	assert.Equal(t, 18, cfg.Settings.ScheduleHour)
	assert.Equal(t, time.Duration(0), cfg.Settings.RoundPause)
	assert.Equal(t, 100, cfg.Settings.Prize, "bad value falls back")
	assert.Equal(t, []int64{42}, cfg.Auth.AdminIDs)
}

func TestOpenStoreMemory(t *testing.T) {
	st, err := openStore("memory")
	require.NoError(t, err)
	defer st.Close()
	_, err = st.CurrentGame(context.Background())
	assert.Error(t, err)
}
