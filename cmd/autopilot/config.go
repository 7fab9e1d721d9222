package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all autopilot configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	RunsDir        string  `json:"runs_dir"`
	DBPath         string  `json:"db_path"`
	LogLevel       string  `json:"log_level"`
	PolicyProfile  string  `json:"policy_profile"`
	MaxPerMinute   int     `json:"max_actions_per_minute"`
	MinIntervalSec float64 `json:"min_action_interval_seconds"`
}

func defaultConfig() Config {
	return Config{
		RunsDir:       filepath.Join(autopilotDir(), "runs"),
		DBPath:        filepath.Join(autopilotDir(), "autopilot.db"),
		LogLevel:      "info",
		PolicyProfile: "balanced",
	}
}

func autopilotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".autopilot"
	}
	return filepath.Join(home, ".autopilot")
}

func settingsPath() string {
	return filepath.Join(autopilotDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("AUTOPILOT_RUNS_DIR"); v != "" {
		cfg.RunsDir = v
	}
	if v := os.Getenv("AUTOPILOT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("AUTOPILOT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("AUTOPILOT_POLICY_PROFILE"); v != "" {
		cfg.PolicyProfile = v
	}
	if v := os.Getenv("AUTOPILOT_MAX_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPerMinute = n
		}
	}
	if v := os.Getenv("AUTOPILOT_MIN_INTERVAL_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MinIntervalSec = f
		}
	}

	return cfg
}
