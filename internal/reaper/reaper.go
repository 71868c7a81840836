// Package reaper periodically forces stale parking spots to occupied.
// A spot that nobody marked occupied within the staleness window is assumed taken.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hongminglow/parkshare/internal/metrics"
	"github.com/hongminglow/parkshare/internal/models"
	"github.com/hongminglow/parkshare/internal/storage"
)

const (
	DefaultInterval   = 30 * time.Minute
	DefaultStaleAfter = 2 * time.Hour
)

// staleStatuses are the statuses a spot can be expired from.
var staleStatuses = []models.SpotStatus{models.SpotNew, models.SpotChosen}

// Occupier is the guarded occupy transition.
type Occupier interface {
	Occupy(ctx context.Context, spotID int64) (models.Spot, error)
}

// Config controls the sweep cadence.
type Config struct {
	Interval   time.Duration
	StaleAfter time.Duration
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Eligible int
	Expired  int
	Failed   int
}

// Reaper expires stale spots through the same transition as a manual occupy.
type Reaper struct {
	spots   storage.SpotStore
	engine  Occupier
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	sweeps       atomic.Int64
	spotsExpired atomic.Int64
}

// Option configures a Reaper.
type Option func(*Reaper)

// WithClock overrides the time source used for the staleness cutoff.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) {
		r.now = now
	}
}

// WithMetrics records sweep outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reaper) {
		r.metrics = m
	}
}

// New creates a reaper. Zero config values fall back to the defaults.
func New(spots storage.SpotStore, engine Occupier, cfg Config, logger *slog.Logger, opts ...Option) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reaper{
		spots:  spots,
		engine: engine,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sweeps immediately and then on every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.logger.Info("reaper started", "interval", r.config.Interval, "stale_after", r.config.StaleAfter)
	r.sweepAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped", "sweeps", r.sweeps.Load(), "spots_expired", r.spotsExpired.Load())
			return nil
		case <-ticker.C:
			r.sweepAndLog(ctx)
		}
	}
}

func (r *Reaper) sweepAndLog(ctx context.Context) {
	if _, err := r.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("reaper sweep failed", "error", err)
	}
}

// Sweep expires every spot older than the staleness window. Failures on one
// spot are logged and counted; the rest of the sweep continues.
func (r *Reaper) Sweep(ctx context.Context) (SweepResult, error) {
	cutoff := r.now().Add(-r.config.StaleAfter)
	ids, err := r.spots.StaleSpotIDs(ctx, cutoff, staleStatuses)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list stale spots: %w", err)
	}

	result := SweepResult{Eligible: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := r.engine.Occupy(ctx, id); err != nil {
			result.Failed++
			r.logger.Warn("failed to expire stale spot", "spot_id", id, "error", err)
			continue
		}
		result.Expired++
	}

	r.sweeps.Add(1)
	r.spotsExpired.Add(int64(result.Expired))
	r.metrics.SweepCompleted(result.Expired, result.Failed)

	r.logger.Info("reaper sweep complete",
		"cutoff", cutoff,
		"eligible", result.Eligible,
		"expired", result.Expired,
		"failed", result.Failed)
	return result, ctx.Err()
}
