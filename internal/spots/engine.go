// Package spots runs the parking spot lifecycle: submission, discovery,
// choosing, occupying and reporting. Every action runs in one store
// transaction together with its credit changes.
package spots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hongminglow/parkshare/internal/apperr"
	"github.com/hongminglow/parkshare/internal/geo"
	"github.com/hongminglow/parkshare/internal/ledger"
	"github.com/hongminglow/parkshare/internal/metrics"
	"github.com/hongminglow/parkshare/internal/models"
	"github.com/hongminglow/parkshare/internal/reputation"
	"github.com/hongminglow/parkshare/internal/storage"
)

const (
	DefaultReportThreshold  = 3
	DefaultMaxPageSize      = 100
	DefaultTransientRetries = 3
)

const retryBackoff = 10 * time.Millisecond

// Rules are the tunable business constants.
type Rules struct {
	ReportThreshold  int
	MaxPageSize      int
	TransientRetries int
}

// DefaultRules returns the production defaults.
func DefaultRules() Rules {
	return Rules{
		ReportThreshold:  DefaultReportThreshold,
		MaxPageSize:      DefaultMaxPageSize,
		TransientRetries: DefaultTransientRetries,
	}
}

func (r Rules) withDefaults() Rules {
	if r.ReportThreshold <= 0 {
		r.ReportThreshold = DefaultReportThreshold
	}
	if r.MaxPageSize <= 0 {
		r.MaxPageSize = DefaultMaxPageSize
	}
	if r.TransientRetries < 0 {
		r.TransientRetries = 0
	}
	return r
}

// Engine applies spot actions. It holds no mutable state of its own.
type Engine struct {
	store     storage.Store
	validator *geo.Validator
	ledger    *ledger.Ledger
	rules     Rules
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source for spot timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records transition outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine wires the engine to its collaborators.
func NewEngine(store storage.Store, validator *geo.Validator, l *ledger.Ledger, rules Rules, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		validator: validator,
		ledger:    l,
		rules:     rules.withDefaults(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil {
		e.validator = geo.NewValidator(geo.DefaultMaxDistanceMeters, e.logger)
	}
	if e.ledger == nil {
		e.ledger = ledger.New(store, e.logger)
	}
	return e
}

// Rules returns the engine's effective rules.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Submit records a new spot at spot on behalf of submitterID, who reports
// standing at reporter. The submitter earns one credit.
func (e *Engine) Submit(ctx context.Context, submitterID int64, spot, reporter geo.Point) (models.Spot, error) {
	created, err := e.submit(ctx, submitterID, spot, reporter)
	e.record(ActionSubmit, err)
	return created, err
}

func (e *Engine) submit(ctx context.Context, submitterID int64, spot, reporter geo.Point) (models.Spot, error) {
	if err := spot.Validate(); err != nil {
		return models.Spot{}, err
	}
	if err := reporter.Validate(); err != nil {
		return models.Spot{}, err
	}
	if !e.validator.Validate(spot, reporter) {
		e.metrics.ProximityRejected()
		return models.Spot{}, apperr.Proximity(
			fmt.Sprintf("spot must be within %.0f meters of your location", e.validator.MaxDistance()))
	}

	var created models.Spot
	err := e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		submitter, err := tx.LockUser(ctx, submitterID)
		if err != nil {
			return userError(err, submitterID)
		}

		now := e.now().UTC()
		created, err = tx.InsertSpot(ctx, models.Spot{
			Latitude:    spot.Lat,
			Longitude:   spot.Lng,
			SubmitterID: submitterID,
			Status:      models.SpotNew,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}

		_, _, err = e.ledger.Apply(ctx, tx, submitter, models.ReasonSpotShared, created.ID)
		return err
	})
	if err != nil {
		return models.Spot{}, translate(err)
	}

	e.logger.Info("spot submitted", "spot_id", created.ID, "submitter_id", submitterID,
		"latitude", created.Latitude, "longitude", created.Longitude)
	return created, nil
}

// ChooseResult is a chosen spot plus the actor's balance afterwards.
type ChooseResult struct {
	Spot             models.Spot `json:"spot"`
	RemainingCredits int         `json:"remaining_credits"`
}

// Choose claims a new spot for actorID at the cost of one credit.
// Choose is never retried automatically.
func (e *Engine) Choose(ctx context.Context, spotID, actorID int64) (ChooseResult, error) {
	var result ChooseResult
	err := e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		spot, err := tx.LockSpot(ctx, spotID)
		if err != nil {
			return spotError(err, spotID)
		}
		to, err := Next(spot.Status, ActionChoose)
		if err != nil {
			return err
		}

		actor, err := tx.LockUser(ctx, actorID)
		if err != nil {
			return userError(err, actorID)
		}
		actor, _, err = e.ledger.Apply(ctx, tx, actor, models.ReasonSpotChosen, spot.ID)
		if err != nil {
			return err
		}

		prev := spot.Status
		spot.Status = to
		spot.ChosenBy = &actorID
		spot.UpdatedAt = e.now().UTC()
		spot, err = tx.UpdateSpot(ctx, spot, prev)
		if errors.Is(err, storage.ErrConflict) {
			return apperr.Guard(apperr.ReasonSpotUnavailable, "spot was taken by someone else")
		}
		if err != nil {
			return err
		}

		result = ChooseResult{Spot: spot, RemainingCredits: actor.Credits}
		return nil
	})
	e.record(ActionChoose, err)
	if err != nil {
		return ChooseResult{}, translate(err)
	}

	e.logger.Info("spot chosen", "spot_id", spotID, "actor_id", actorID, "remaining_credits", result.RemainingCredits)
	return result, nil
}

// Occupy marks a spot as taken. Occupying an occupied spot is a no-op.
// The reaper expires stale spots through this same path.
func (e *Engine) Occupy(ctx context.Context, spotID int64) (models.Spot, error) {
	var spot models.Spot
	err := e.retry(ctx, ActionOccupy, func() error {
		return e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			current, err := tx.LockSpot(ctx, spotID)
			if err != nil {
				return spotError(err, spotID)
			}
			to, err := Next(current.Status, ActionOccupy)
			if err != nil {
				return err
			}
			if to == current.Status {
				spot = current
				return nil
			}

			prev := current.Status
			current.Status = to
			current.UpdatedAt = e.now().UTC()
			spot, err = tx.UpdateSpot(ctx, current, prev)
			return err
		})
	})
	e.record(ActionOccupy, err)
	if err != nil {
		return models.Spot{}, err
	}

	e.logger.Info("spot occupied", "spot_id", spotID)
	return spot, nil
}

// Report flags a spot as bad. Once reports reach the threshold the spot is
// disabled and its submitter loses a credit if they have one.
func (e *Engine) Report(ctx context.Context, spotID int64) (models.Spot, error) {
	var spot models.Spot
	err := e.retry(ctx, ActionReport, func() error {
		return e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			current, err := tx.LockSpot(ctx, spotID)
			if err != nil {
				return spotError(err, spotID)
			}
			if _, err := Next(current.Status, ActionReport); err != nil {
				return err
			}

			prev := current.Status
			next, penalize := applyReport(current, e.rules.ReportThreshold)
			next.UpdatedAt = e.now().UTC()
			spot, err = tx.UpdateSpot(ctx, next, prev)
			if err != nil {
				return err
			}
			if !penalize {
				return nil
			}

			submitter, err := tx.LockUser(ctx, spot.SubmitterID)
			if errors.Is(err, storage.ErrNotFound) {
				e.logger.Warn("report penalty skipped: submitter missing",
					"spot_id", spot.ID, "submitter_id", spot.SubmitterID)
				return nil
			}
			if err != nil {
				return err
			}
			_, _, err = e.ledger.Apply(ctx, tx, submitter, models.ReasonReportPenalty, spot.ID)
			return err
		})
	})
	e.record(ActionReport, err)
	if err != nil {
		return models.Spot{}, err
	}

	e.logger.Info("spot reported", "spot_id", spotID, "reports", spot.Reports, "status", string(spot.Status))
	return spot, nil
}

// Profile returns the user's summary with a freshly computed reputation.
func (e *Engine) Profile(ctx context.Context, userID int64) (models.UserSummary, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return models.UserSummary{}, translate(userError(err, userID))
	}
	return reputation.Summarize(user), nil
}

// History returns the user's newest credit ledger entries.
func (e *Engine) History(ctx context.Context, userID int64, limit int) ([]models.LedgerEntry, error) {
	entries, err := e.ledger.History(ctx, userID, limit)
	if err != nil {
		return nil, translate(err)
	}
	return entries, nil
}

// retry reruns fn while it fails with a transient store error.
func (e *Engine) retry(ctx context.Context, action Action, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := translate(fn())
		if err == nil || !apperr.Is(err, apperr.KindTransient) || attempt >= e.rules.TransientRetries {
			return err
		}

		e.logger.Warn("retrying after transient store error",
			"action", string(action), "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return apperr.Transient(ctx.Err())
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}
}

func (e *Engine) record(action Action, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperr.ReasonOf(translate(err))
	}
	e.metrics.Transition(string(action), outcome)
}

func spotError(err error, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(apperr.ReasonSpotNotFound, fmt.Sprintf("spot %d not found", id))
	}
	return err
}

func userError(err error, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(apperr.ReasonUserNotFound, fmt.Sprintf("user %d not found", id))
	}
	return err
}

// translate classifies store failures that escaped as plain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, storage.ErrTransient) || errors.Is(err, storage.ErrConflict) {
		return apperr.Transient(err)
	}
	return apperr.Internal(err)
}

// ListQuery selects a page of spots. Center and Radius are optional; Radius
// requires Center.
type ListQuery struct {
	Page    int
	PerPage int
	Status  models.SpotStatus
	Center  *geo.Point
	Radius  *float64
}

// Pagination describes the returned page.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// ListResult is one page of spots.
type ListResult struct {
	Spots      []models.Spot `json:"spots"`
	Pagination Pagination    `json:"pagination"`
}

// List returns available spots. Without a center they come in store order.
// With a center and a radius, every spot within Radius meters is ranked
// nearest first before paging. With a center alone the store pages in
// approximate distance order and each page is ranked exactly.
// A page past the end is empty, however large.
func (e *Engine) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if q.Page < 1 || q.PerPage < 1 {
		return ListResult{}, apperr.Validation(apperr.ReasonInvalidPagination, "page and per_page must be positive")
	}
	if q.PerPage > e.rules.MaxPageSize {
		q.PerPage = e.rules.MaxPageSize
	}
	if q.Status == "" {
		q.Status = models.SpotNew
	}
	if !q.Status.Valid() {
		return ListResult{}, apperr.Validation(apperr.ReasonInvalidStatus, fmt.Sprintf("unknown status %q", q.Status))
	}
	if q.Radius != nil {
		if q.Center == nil {
			return ListResult{}, apperr.Validation(apperr.ReasonInvalidRadius, "radius requires a location")
		}
		if r := *q.Radius; r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return ListResult{}, apperr.Validation(apperr.ReasonInvalidRadius, "radius must be a positive number of meters")
		}
	}
	if q.Center != nil {
		if err := q.Center.Validate(); err != nil {
			return ListResult{}, err
		}
	}

	offset, ok := pageOffset(q.Page, q.PerPage)
	filter := storage.SpotFilter{Status: q.Status}

	var (
		page  []models.Spot
		total int
	)
	switch {
	case q.Radius != nil:
		box := geo.Bounds(*q.Center, *q.Radius)
		filter.Bounds = &box
		candidates, _, err := e.store.ListSpots(ctx, filter)
		if err != nil {
			return ListResult{}, translate(err)
		}
		ranked := geo.Rank(candidates, *q.Center, q.Radius)
		total = len(ranked)
		if ok && offset < total {
			page = ranked[offset:min(offset+q.PerPage, total)]
		}
	case !ok:
		// The page lies past any possible result; only the total is needed.
		filter.Near = q.Center
		filter.Limit = 1
		_, n, err := e.store.ListSpots(ctx, filter)
		if err != nil {
			return ListResult{}, translate(err)
		}
		total = n
	default:
		filter.Near = q.Center
		filter.Limit, filter.Offset = q.PerPage, offset
		spots, n, err := e.store.ListSpots(ctx, filter)
		if err != nil {
			return ListResult{}, translate(err)
		}
		page, total = spots, n
		if q.Center != nil {
			page = geo.Rank(page, *q.Center, nil)
		}
	}

	if page == nil {
		page = []models.Spot{}
	}
	return ListResult{
		Spots: page,
		Pagination: Pagination{
			Page:    q.Page,
			Pages:   (total + q.PerPage - 1) / q.PerPage,
			PerPage: q.PerPage,
			Total:   total,
		},
	}, nil
}

// pageOffset returns the number of rows before page, or false when the end
// of page does not fit in an int.
func pageOffset(page, perPage int) (int, bool) {
	if page > math.MaxInt/perPage {
		return 0, false
	}
	return (page - 1) * perPage, true
}
