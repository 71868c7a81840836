package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hongminglow/parkshare/internal/models"
)

const ledgerColumns = `id, user_id, spot_id, reason, delta, balance, created_at`

// AppendLedger inserts an audit row.
func (t *pgTx) AppendLedger(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error) {
	const query = `
		INSERT INTO credit_ledger (user_id, spot_id, reason, delta, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := t.q.QueryRowContext(ctx, query, entry.UserID, nullableID(entry.SpotID), string(entry.Reason),
		entry.Delta, entry.Balance, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("append ledger entry: %w", mapError(err))
	}
	return entry, nil
}

// LedgerEntries returns the newest entries for a user first.
func (s *Store) LedgerEntries(ctx context.Context, userID int64, limit int) ([]models.LedgerEntry, error) {
	const query = `SELECT ` + ledgerColumns + ` FROM credit_ledger WHERE user_id = $1 ORDER BY id DESC LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select ledger: %w", mapError(err))
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			e      models.LedgerEntry
			spotID sql.NullInt64
			reason string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &spotID, &reason, &e.Delta, &e.Balance, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Reason = models.LedgerReason(reason)
		if spotID.Valid {
			id := spotID.Int64
			e.SpotID = &id
		}
		entries = append(entries, e)
	}
	return entries, mapError(rows.Err())
}
