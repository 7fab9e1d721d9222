package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dvera/autopilot/internal/actions"
	"github.com/dvera/autopilot/internal/adapter"
	"github.com/dvera/autopilot/internal/engine"
	"github.com/dvera/autopilot/internal/history"
	"github.com/dvera/autopilot/internal/store"
	"github.com/dvera/autopilot/internal/validation"
)

// app bundles the wired collaborators behind every subcommand.
type app struct {
	cfg       Config
	logger    *slog.Logger
	adapters  *adapter.Manager
	registry  *actions.Registry
	engine    *engine.Engine
	history   *history.Writer
	validator *validation.PlanValidator
	store     store.Store
}

// newApp wires the engine stack from cfg. The run index is optional: an
// unopenable database is logged and skipped, never fatal.
func newApp(cfg Config) (*app, error) {
	logger := newLogger(cfg.LogLevel)

	adapters := adapter.NewManager(logger)
	if _, err := adapters.SetPolicy(cfg.PolicyProfile); err != nil {
		return nil, err
	}

	registry := actions.NewRegistry()
	if err := actions.RegisterBuiltins(registry, actions.Deps{
		Adapters: adapters,
		Logger:   logger,
	}); err != nil {
		return nil, err
	}

	validator, err := validation.NewPlanValidator()
	if err != nil {
		return nil, err
	}

	writer := history.NewWriter(cfg.RunsDir, logger)
	eng := engine.New(engine.Config{
		Registry: registry,
		History:  writer,
		Adapters: adapters,
		Limiter:  engine.NewActionLimiter(logger, cfg.MaxPerMinute, time.Duration(cfg.MinIntervalSec*float64(time.Second))),
		Logger:   logger,
	})

	a := &app{
		cfg:       cfg,
		logger:    logger,
		adapters:  adapters,
		registry:  registry,
		engine:    eng,
		history:   writer,
		validator: validator,
	}
	a.openStore()
	return a, nil
}

func (a *app) openStore() {
	if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
		a.logger.Warn("run index unavailable", "path", a.cfg.DBPath, "error", err)
		return
	}
	s, err := store.NewLibSQLStore(a.cfg.DBPath)
	if err != nil {
		a.logger.Warn("run index unavailable", "path", a.cfg.DBPath, "error", err)
		return
	}
	if err := s.Migrate(context.Background()); err != nil {
		a.logger.Warn("run index migration failed", "path", a.cfg.DBPath, "error", err)
		_ = s.Close()
		return
	}
	a.store = s
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
