package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	assert.NotEmpty(t, cfg.RunsDir)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "balanced", cfg.PolicyProfile)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AUTOPILOT_RUNS_DIR", "/tmp/runs")
	t.Setenv("AUTOPILOT_LOG_LEVEL", "debug")
	t.Setenv("AUTOPILOT_POLICY_PROFILE", "strict")
	t.Setenv("AUTOPILOT_MAX_PER_MINUTE", "12")
	t.Setenv("AUTOPILOT_MIN_INTERVAL_SECONDS", "0.5")

	cfg := loadConfig()
	assert.Equal(t, "/tmp/runs", cfg.RunsDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "strict", cfg.PolicyProfile)
	assert.Equal(t, 12, cfg.MaxPerMinute)
	assert.Equal(t, 0.5, cfg.MinIntervalSec)
}

func TestLoadConfigIgnoresBadNumbers(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AUTOPILOT_MAX_PER_MINUTE", "lots")
	cfg := loadConfig()
	assert.Equal(t, defaultConfig().MaxPerMinute, cfg.MaxPerMinute)
}

func TestBuiltinPlanResolution(t *testing.T) {
	p, err := builtinPlan("search", "golang slog")
	assert.NoError(t, err)
	assert.Equal(t, "search", p.Name)

	_, err = builtinPlan("search", "")
	assert.Error(t, err)

	_, err = builtinPlan("mystery", "x")
	assert.Error(t, err)
}
