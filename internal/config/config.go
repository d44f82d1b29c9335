package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the service. Values come from
// environment variables; a .env file is loaded by the CLI entrypoint before
// this runs.
type Config struct {
	ListenAddr     string   // LISTEN_ADDR, address for the HTTP server
	AllowedOrigins []string // CORS_ORIGINS, comma-separated list for CORS and websocket origin checks

	GoogleClientID     string   // GOOGLE_CLIENT_ID
	GoogleClientSecret string   // GOOGLE_CLIENT_SECRET
	GoogleAccount      string   // GOOGLE_ACCOUNT, selects the token-<name>.json file
	CalendarIDs        []string // GOOGLE_CALENDAR_IDS, comma-separated

	Timezone     *time.Location // PRIMARY_TIMEZONE
	SyncSchedule string         // SYNC_SCHEDULE, optional cron spec for server-initiated syncs
	LookBehind   time.Duration  // SYNC_LOOKBEHIND_DAYS, how far back a sync reaches
	LookAhead    time.Duration  // SYNC_LOOKAHEAD_DAYS, how far forward a sync reaches

	LogLevel string // LOG_LEVEL
}

// Load reads configuration from the environment, applying defaults where a
// variable is unset.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8000"),
		AllowedOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleAccount:      os.Getenv("GOOGLE_ACCOUNT"),
		CalendarIDs:        splitList(os.Getenv("GOOGLE_CALENDAR_IDS")),
		SyncSchedule:       os.Getenv("SYNC_SCHEDULE"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	tzStr := getEnv("PRIMARY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", tzStr, err)
	}
	cfg.Timezone = loc

	behind, err := getEnvInt("SYNC_LOOKBEHIND_DAYS", 30)
	if err != nil {
		return Config{}, err
	}
	ahead, err := getEnvInt("SYNC_LOOKAHEAD_DAYS", 90)
	if err != nil {
		return Config{}, err
	}
	cfg.LookBehind = time.Duration(behind) * 24 * time.Hour
	cfg.LookAhead = time.Duration(ahead) * 24 * time.Hour

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
