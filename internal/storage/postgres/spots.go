package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hongminglow/parkshare/internal/geo"
	"github.com/hongminglow/parkshare/internal/models"
	"github.com/hongminglow/parkshare/internal/storage"
)

const spotColumns = `id, latitude, longitude, submitter_id, status, reports, chosen_by, created_at, updated_at`

// ListSpots returns spots matching the filter, nearest to filter.Near first
// when it is set and in id order otherwise.
func (s *Store) ListSpots(ctx context.Context, filter storage.SpotFilter) ([]models.Spot, int, error) {
	where, args := spotWhere(filter)

	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE ` + where + ` ORDER BY `
	queryArgs := append([]any{}, args...)
	if p := filter.Near; p != nil {
		n := len(queryArgs)
		query += fmt.Sprintf(`(latitude - $%d) * (latitude - $%d) + (longitude - $%d) * (longitude - $%d) * $%d, `,
			n+1, n+1, n+2, n+2, n+3)
		queryArgs = append(queryArgs, p.Lat, p.Lng, geo.LngWeight(p.Lat))
	}
	query += `id`
	if filter.Limit > 0 {
		n := len(queryArgs)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2)
		queryArgs = append(queryArgs, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list spots: %w", mapError(err))
	}
	defer rows.Close()

	var spots []models.Spot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan spot: %w", err)
		}
		spots = append(spots, spot)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list spots: %w", mapError(err))
	}

	if filter.Limit == 0 {
		return spots, len(spots), nil
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM parking_spots WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count spots: %w", mapError(err))
	}
	return spots, total, nil
}

func spotWhere(filter storage.SpotFilter) (string, []any) {
	clauses := []string{"status = $1"}
	args := []any{string(filter.Status)}
	if b := filter.Bounds; b != nil {
		clauses = append(clauses,
			fmt.Sprintf("latitude BETWEEN $%d AND $%d", len(args)+1, len(args)+2),
			fmt.Sprintf("longitude BETWEEN $%d AND $%d", len(args)+3, len(args)+4))
		args = append(args, b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}
	return strings.Join(clauses, " AND "), args
}

// StaleSpotIDs returns ids of spots created before the cutoff in one of the given statuses.
func (s *Store) StaleSpotIDs(ctx context.Context, before time.Time, statuses []models.SpotStatus) ([]int64, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := []any{before}
	for i, st := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, string(st))
	}
	query := `SELECT id FROM parking_spots WHERE created_at < $1 AND status IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select stale spots: %w", mapError(err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale spot: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, mapError(rows.Err())
}

// LockSpot loads a spot row with FOR UPDATE.
func (t *pgTx) LockSpot(ctx context.Context, id int64) (models.Spot, error) {
	const query = `SELECT ` + spotColumns + ` FROM parking_spots WHERE id = $1 FOR UPDATE`
	spot, err := scanSpot(t.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.Spot{}, fmt.Errorf("lock spot %d: %w", id, err)
	}
	return spot, nil
}

// InsertSpot creates a spot row.
func (t *pgTx) InsertSpot(ctx context.Context, spot models.Spot) (models.Spot, error) {
	const query = `
		INSERT INTO parking_spots (latitude, longitude, submitter_id, status, reports, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + spotColumns

	row := t.q.QueryRowContext(ctx, query, spot.Latitude, spot.Longitude, spot.SubmitterID,
		string(spot.Status), spot.Reports, spot.CreatedAt, spot.UpdatedAt)
	created, err := scanSpot(row)
	if err != nil {
		return models.Spot{}, fmt.Errorf("insert spot: %w", err)
	}
	return created, nil
}

// UpdateSpot writes the mutable spot fields if the stored status still equals prev.
func (t *pgTx) UpdateSpot(ctx context.Context, spot models.Spot, prev models.SpotStatus) (models.Spot, error) {
	const query = `
		UPDATE parking_spots
		SET status = $1, reports = $2, chosen_by = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		RETURNING ` + spotColumns

	row := t.q.QueryRowContext(ctx, query, string(spot.Status), spot.Reports, nullableID(spot.ChosenBy),
		spot.UpdatedAt, spot.ID, string(prev))
	updated, err := scanSpot(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Spot{}, fmt.Errorf("update spot %d: %w", spot.ID, storage.ErrConflict)
		}
		return models.Spot{}, fmt.Errorf("update spot %d: %w", spot.ID, err)
	}
	return updated, nil
}

func scanSpot(row scanner) (models.Spot, error) {
	var (
		spot     models.Spot
		status   string
		chosenBy sql.NullInt64
	)
	err := row.Scan(&spot.ID, &spot.Latitude, &spot.Longitude, &spot.SubmitterID, &status,
		&spot.Reports, &chosenBy, &spot.CreatedAt, &spot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Spot{}, storage.ErrNotFound
		}
		return models.Spot{}, mapError(err)
	}
	if spot.Status, err = models.ParseSpotStatus(status); err != nil {
		return models.Spot{}, err
	}
	if chosenBy.Valid {
		id := chosenBy.Int64
		spot.ChosenBy = &id
	}
	return spot, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
