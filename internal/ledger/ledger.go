// Package ledger applies credit and statistics changes tied to spot transitions
// and records each change in an append-only audit trail.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hongminglow/parkshare/internal/apperr"
	"github.com/hongminglow/parkshare/internal/models"
	"github.com/hongminglow/parkshare/internal/storage"
)

// DefaultHistoryLimit bounds History when the caller passes a non-positive limit.
const DefaultHistoryLimit = 50

// MaxHistoryLimit caps History reads.
const MaxHistoryLimit = 500

var deltas = map[models.LedgerReason]models.UserDelta{
	models.ReasonSpotShared:    {Credits: 1, CreditsEarned: 1, SpotsShared: 1},
	models.ReasonSpotChosen:    {Credits: -1, SpotsFound: 1},
	models.ReasonReportPenalty: {Credits: -1},
}

// Delta returns the counter change associated with reason.
func Delta(reason models.LedgerReason) (models.UserDelta, bool) {
	d, ok := deltas[reason]
	return d, ok
}

// Ledger is stateless; all writes go through the caller's transaction.
type Ledger struct {
	store  storage.LedgerStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates a ledger reading history from store.
func New(store storage.LedgerStore, logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply charges or credits user for reason inside tx. The user row must
// already be locked by tx. It returns the updated user and whether a change
// was made: a report penalty against a user with no credits is skipped.
func (l *Ledger) Apply(ctx context.Context, tx storage.Tx, user models.User, reason models.LedgerReason, spotID int64) (models.User, bool, error) {
	delta, ok := deltas[reason]
	if !ok {
		return user, false, apperr.Internal(fmt.Errorf("unknown ledger reason %q", reason))
	}

	if delta.Credits < 0 && user.Credits+delta.Credits < 0 {
		if reason == models.ReasonReportPenalty {
			l.logger.Info("report penalty skipped", "user_id", user.ID, "spot_id", spotID, "credits", user.Credits)
			return user, false, nil
		}
		return user, false, apperr.Guard(apperr.ReasonInsufficientCredit,
			fmt.Sprintf("user %d has %d credits", user.ID, user.Credits))
	}

	updated, err := tx.AdjustUser(ctx, user.ID, delta)
	if err != nil {
		return user, false, fmt.Errorf("apply %s: %w", reason, err)
	}

	sid := spotID
	entry := models.LedgerEntry{
		UserID:    user.ID,
		SpotID:    &sid,
		Reason:    reason,
		Delta:     delta.Credits,
		Balance:   updated.Credits,
		CreatedAt: l.now().UTC(),
	}
	if _, err := tx.AppendLedger(ctx, entry); err != nil {
		return user, false, fmt.Errorf("record %s: %w", reason, err)
	}

	l.logger.Debug("credits applied", "user_id", user.ID, "spot_id", spotID,
		"reason", string(reason), "delta", delta.Credits, "balance", updated.Credits)
	return updated, true, nil
}

// History returns the newest ledger entries for userID.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	entries, err := l.store.LedgerEntries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger history for user %d: %w", userID, err)
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return entries, nil
}
