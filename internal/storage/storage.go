package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/parkshare/internal/geo"
	"github.com/hongminglow/parkshare/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrConflict indicates a conditional update lost to a concurrent writer.
var ErrConflict = errors.New("record changed concurrently")

// ErrTransient wraps lock contention, serialization and connection failures.
var ErrTransient = errors.New("transient store failure")

// SpotFilter selects spots for listing. A zero Limit returns every match.
// When Near is set, rows come approximately nearest to it first (an
// equirectangular approximation, exact ranking is left to the caller);
// otherwise they come in id order.
type SpotFilter struct {
	Status models.SpotStatus
	Bounds *geo.Box
	Near   *geo.Point
	Limit  int
	Offset int
}

// UserStore captures account persistence used by auth and profile reads.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
}

// SpotStore captures read-only spot queries.
type SpotStore interface {
	// ListSpots returns the matching page and the total match count.
	ListSpots(ctx context.Context, filter SpotFilter) ([]models.Spot, int, error)
	// StaleSpotIDs returns ids of spots created before the cutoff whose status is one of statuses.
	StaleSpotIDs(ctx context.Context, before time.Time, statuses []models.SpotStatus) ([]int64, error)
}

// LedgerStore reads the credit audit trail.
type LedgerStore interface {
	LedgerEntries(ctx context.Context, userID int64, limit int) ([]models.LedgerEntry, error)
}

// Tx is the set of writes an action performs atomically.
type Tx interface {
	// LockSpot loads a spot and holds it against concurrent writers until the transaction ends.
	LockSpot(ctx context.Context, id int64) (models.Spot, error)
	InsertSpot(ctx context.Context, spot models.Spot) (models.Spot, error)
	// UpdateSpot persists status, reports, chosen_by and updated_at only if the stored
	// status still equals prev; otherwise it returns ErrConflict.
	UpdateSpot(ctx context.Context, spot models.Spot, prev models.SpotStatus) (models.Spot, error)
	LockUser(ctx context.Context, id int64) (models.User, error)
	// AdjustUser adds delta to the user's counters in a single statement.
	AdjustUser(ctx context.Context, id int64, delta models.UserDelta) (models.User, error)
	AppendLedger(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	UserStore
	SpotStore
	LedgerStore
	// InTx runs fn in one transaction, committing when fn returns nil and rolling back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	Close() error
}
