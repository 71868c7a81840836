package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hongminglow/parkshare/internal/models"
)

// AppendLedger inserts an audit row.
func (t *sqliteTx) AppendLedger(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error) {
	const query = `
		INSERT INTO credit_ledger (user_id, spot_id, reason, delta, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := t.q.QueryRowContext(ctx, query, entry.UserID, nullableID(entry.SpotID), string(entry.Reason),
		entry.Delta, entry.Balance, entry.CreatedAt.UnixNano()).Scan(&entry.ID)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("append ledger entry: %w", mapError(err))
	}
	return entry, nil
}

// LedgerEntries returns the newest entries for a user first.
func (s *Store) LedgerEntries(ctx context.Context, userID int64, limit int) ([]models.LedgerEntry, error) {
	const query = `
		SELECT id, user_id, spot_id, reason, delta, balance, created_at
		FROM credit_ledger WHERE user_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select ledger: %w", mapError(err))
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			e         models.LedgerEntry
			spotID    sql.NullInt64
			reason    string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &spotID, &reason, &e.Delta, &e.Balance, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Reason = models.LedgerReason(reason)
		if spotID.Valid {
			id := spotID.Int64
			e.SpotID = &id
		}
		e.CreatedAt = fromNanos(createdAt)
		entries = append(entries, e)
	}
	return entries, mapError(rows.Err())
}
