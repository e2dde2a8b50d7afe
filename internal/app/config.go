package app

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config collects the knobs the services need beyond connection settings.
type Config struct {
	// MaxAdvanceDays bounds how far a vacation admission may project a
	// balance below zero.
	MaxAdvanceDays int

	// MaxCarryoverDays caps surplus carried by the year close.
	MaxCarryoverDays int

	// HolidayCacheTTL bounds staleness of the cached holiday set.
	HolidayCacheTTL time.Duration

	// SweepInterval is how often the sweeper closes abandoned entries.
	SweepInterval time.Duration

	// OutboxPollInterval is how often the publisher drains pending events.
	OutboxPollInterval time.Duration
}

func LoadConfig() (Config, error) {
	cfg := Config{
		MaxAdvanceDays:     25,
		MaxCarryoverDays:   10,
		HolidayCacheTTL:    time.Hour,
		SweepInterval:      time.Hour,
		OutboxPollInterval: 3 * time.Second,
	}

	var err error
	if cfg.MaxAdvanceDays, err = intEnv("MAX_ADVANCE_DAYS", cfg.MaxAdvanceDays); err != nil {
		return Config{}, err
	}
	if cfg.MaxCarryoverDays, err = intEnv("MAX_CARRYOVER_DAYS", cfg.MaxCarryoverDays); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = durationEnv("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return Config{}, err
	}
	if cfg.HolidayCacheTTL, err = durationEnv("HOLIDAY_CACHE_TTL", cfg.HolidayCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = durationEnv("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30m: %w", key, err)
	}
	return v, nil
}
