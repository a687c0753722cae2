package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config keeps runtime settings for the service.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	AccountID      string
	LeadTime       time.Duration
	SnoozeDelay    time.Duration
	FireFallback   time.Duration
	ResyncInterval time.Duration
	DigestTime     string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AccountID:      strings.TrimSpace(os.Getenv("ACCOUNT_ID")),
		LeadTime:       parseDuration(os.Getenv("LEAD_TIME"), time.Hour),
		SnoozeDelay:    parseDuration(os.Getenv("SNOOZE_DELAY"), 5*time.Minute),
		FireFallback:   parseDuration(os.Getenv("FIRE_FALLBACK"), 3*time.Second),
		ResyncInterval: parseDuration(os.Getenv("RESYNC_INTERVAL"), 15*time.Minute),
		DigestTime:     strings.TrimSpace(os.Getenv("DIGEST_TIME")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "brainboard.db"
	}

	if cfg.DigestTime == "" {
		cfg.DigestTime = "09:00"
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
