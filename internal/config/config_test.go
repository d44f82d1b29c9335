package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LISTEN_ADDR", "CORS_ORIGINS", "PRIMARY_TIMEZONE",
		"SYNC_LOOKBEHIND_DAYS", "SYNC_LOOKAHEAD_DAYS", "LOG_LEVEL", "GOOGLE_CALENDAR_IDS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Timezone != time.UTC {
		t.Errorf("Timezone = %v", cfg.Timezone)
	}
	if cfg.LookBehind != 30*24*time.Hour || cfg.LookAhead != 90*24*time.Hour {
		t.Errorf("sync window = %v/%v", cfg.LookBehind, cfg.LookAhead)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9100")
	t.Setenv("CORS_ORIGINS", "https://cal.example.com, https://app.example.com")
	t.Setenv("GOOGLE_CALENDAR_IDS", "primary,family@group.calendar.google.com")
	t.Setenv("SYNC_LOOKBEHIND_DAYS", "7")
	t.Setenv("SYNC_LOOKAHEAD_DAYS", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":9100" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://app.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if len(cfg.CalendarIDs) != 2 {
		t.Errorf("CalendarIDs = %v", cfg.CalendarIDs)
	}
	if cfg.LookBehind != 7*24*time.Hour {
		t.Errorf("LookBehind = %v", cfg.LookBehind)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PRIMARY_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	t.Setenv("PRIMARY_TIMEZONE", "UTC")

	t.Setenv("SYNC_LOOKBEHIND_DAYS", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric window")
	}
}
