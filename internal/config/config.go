package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	Timezone       string
	ReportTime     string // HH:MM, empty disables the daily report
	ReportInterval time.Duration

	Assistant AssistantConfig
	Logger    LoggerConfig
}

// AssistantConfig points at an OpenAI-compatible chat completion endpoint.
type AssistantConfig struct {
	BaseURL      string
	Model        string
	Token        string
	HistoryLimit int
	Temperature  float64
	MaxTokens    int
}

type LoggerConfig struct {
	Level    string
	Encoding string
	File     string
}

// Load reads configuration from an optional .env file and the environment.
func Load() (Config, error) {
	// A missing .env file is fine; the environment alone may be enough.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		TelegramToken:  strings.TrimSpace(v.GetString("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(v.GetString("DATABASE_URL")),
		Timezone:       strings.TrimSpace(v.GetString("TIMEZONE")),
		ReportTime:     strings.TrimSpace(v.GetString("REPORT_TIME")),
		ReportInterval: parseInterval(strings.TrimSpace(v.GetString("REPORT_INTERVAL_HOURS"))),
		Assistant: AssistantConfig{
			BaseURL:      strings.TrimSpace(v.GetString("ASSISTANT_BASE_URL")),
			Model:        strings.TrimSpace(v.GetString("ASSISTANT_MODEL")),
			Token:        strings.TrimSpace(v.GetString("ASSISTANT_TOKEN")),
			HistoryLimit: v.GetInt("ASSISTANT_HISTORY_LIMIT"),
			Temperature:  v.GetFloat64("ASSISTANT_TEMPERATURE"),
			MaxTokens:    v.GetInt("ASSISTANT_MAX_TOKENS"),
		},
		Logger: LoggerConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
			File:     strings.TrimSpace(v.GetString("LOG_FILE")),
		},
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_planner.db"
	}
	if cfg.Assistant.HistoryLimit < 0 {
		return cfg, fmt.Errorf("ASSISTANT_HISTORY_LIMIT must not be negative")
	}
	if cfg.ReportTime != "" {
		if _, err := time.Parse("15:04", cfg.ReportTime); err != nil {
			return cfg, fmt.Errorf("REPORT_TIME %q, expected HH:MM", cfg.ReportTime)
		}
	}

	return cfg, nil
}

// RequireTelegram checks the settings only the bot needs.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "daily_planner.db")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("REPORT_TIME", "08:00")
	v.SetDefault("REPORT_INTERVAL_HOURS", "")
	v.SetDefault("ASSISTANT_BASE_URL", "https://models.inference.ai.azure.com")
	v.SetDefault("ASSISTANT_MODEL", "gpt-4o")
	v.SetDefault("ASSISTANT_HISTORY_LIMIT", 20)
	v.SetDefault("ASSISTANT_TEMPERATURE", 0.7)
	v.SetDefault("ASSISTANT_MAX_TOKENS", 500)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "console")
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
