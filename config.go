// config.go
//
// Process configuration read from the environment (and .env via godotenv).
// Unset or malformed values fall back to defaults.

package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle-royale/internal/httpserver"
	"github.com/robalobadob/wordle-royale/internal/tournament"
)

// Config is everything main needs to wire the server.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string // "console" for human-readable output
	DBPath    string // ":memory:" or "memory" selects the in-memory store

	Settings tournament.Settings
	Auth     httpserver.AuthConfig

	BroadcastRate float64 // outgoing messages per second; <= 0 is unlimited
}

func loadConfig() Config {
	s := tournament.DefaultSettings()
	s.RegistrationMinutes = envInt("REGISTRATION_MINUTES", s.RegistrationMinutes)
	s.ScheduleHour = envInt("GAME_SCHEDULE_HOUR", s.ScheduleHour)
	s.ScheduleMinute = envInt("GAME_SCHEDULE_MINUTE", s.ScheduleMinute)
	s.RoundPause = time.Duration(envInt("ROUND_PAUSE_SECONDS", int(s.RoundPause/time.Second))) * time.Second
	s.Prize = envInt("PRIZE_AMOUNT", s.Prize)

	return Config{
		Port:      getEnv("PORT", "5175"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		DBPath:    getEnv("DATABASE_PATH", "./data/royale.db"),
		Settings:  s,
		Auth: httpserver.AuthConfig{
			AdminIDs:     parseIDs(os.Getenv("ADMIN_IDS")),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			Secret:       os.Getenv("JWT_SECRET"),
			TTL:          time.Duration(envInt("JWT_EXPIRES_HOURS", 12)) * time.Hour,
		},
		BroadcastRate: envFloat("BROADCAST_RATE", 20),
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		return def
	}
	return n
}

func envFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not a number, using default")
		return def
	}
	return f
}

// parseIDs reads a comma separated id list, skipping junk.
func parseIDs(s string) []int64 {
	var out []int64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			log.Warn().Str("id", f).Msg("ADMIN_IDS: skipping bad id")
			continue
		}
		out = append(out, id)
	}
	return out
}
