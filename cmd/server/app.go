package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hongminglow/parkshare/internal/config"
	"github.com/hongminglow/parkshare/internal/geo"
	"github.com/hongminglow/parkshare/internal/ledger"
	"github.com/hongminglow/parkshare/internal/metrics"
	"github.com/hongminglow/parkshare/internal/reaper"
	"github.com/hongminglow/parkshare/internal/spots"
	"github.com/hongminglow/parkshare/internal/storage"
	"github.com/hongminglow/parkshare/internal/storage/postgres"
	"github.com/hongminglow/parkshare/internal/storage/sqlite"
)

// app holds the long-lived collaborators shared by every subcommand.
type app struct {
	store   storage.Store
	engine  *spots.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	rules := spots.DefaultRules()
	rules.ReportThreshold = cfg.ReportThreshold
	rules.MaxPageSize = cfg.MaxPageSize

	engine := spots.NewEngine(store,
		geo.NewValidator(cfg.ProximityMaxMeters, logger),
		ledger.New(store, logger),
		rules,
		spots.WithLogger(logger),
		spots.WithMetrics(m),
	)
	return &app{store: store, engine: engine, metrics: m, logger: logger}, nil
}

func (a *app) reaper(cfg config.Config) *reaper.Reaper {
	return reaper.New(a.store, a.engine,
		reaper.Config{Interval: cfg.ReaperInterval, StaleAfter: cfg.StaleAfter},
		a.logger, reaper.WithMetrics(a.metrics))
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return store, nil
	default:
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		return store, nil
	}
}
