package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REPORT_TIME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "daily_planner.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Assistant.Model == "" || cfg.Assistant.BaseURL == "" {
		t.Errorf("assistant defaults missing: %+v", cfg.Assistant)
	}
	if err := cfg.RequireTelegram(); err == nil {
		t.Error("RequireTelegram should fail without a token")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", " 123:abc ")
	t.Setenv("DATABASE_URL", "data/planner.db")
	t.Setenv("REPORT_TIME", "07:30")
	t.Setenv("REPORT_INTERVAL_HOURS", "6")
	t.Setenv("ASSISTANT_HISTORY_LIMIT", "4")
	t.Setenv("ASSISTANT_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TelegramToken != "123:abc" || cfg.RequireTelegram() != nil {
		t.Errorf("TelegramToken = %q", cfg.TelegramToken)
	}
	if cfg.DatabaseURL != "data/planner.db" || cfg.ReportTime != "07:30" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ReportInterval != 6*time.Hour {
		t.Errorf("ReportInterval = %v", cfg.ReportInterval)
	}
	if cfg.Assistant.HistoryLimit != 4 || cfg.Assistant.Model != "gpt-4o-mini" {
		t.Errorf("Assistant = %+v", cfg.Assistant)
	}
}

func TestLoadRejectsBadReportTime(t *testing.T) {
	t.Setenv("REPORT_TIME", "8am")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for REPORT_TIME=8am")
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Hour},
		{"1.5", 90 * time.Minute},
		{"-2", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := parseInterval(tt.raw); got != tt.want {
			t.Errorf("parseInterval(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
