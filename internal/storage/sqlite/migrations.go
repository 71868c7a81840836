package sqlite

import (
	"context"
	"fmt"
)

type migration struct {
	name string
	sql  string
}

// migrations are applied in order; append only.
var migrations = []migration{
	{
		name: "create users and parking_spots",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT UNIQUE NOT NULL,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				credits INTEGER NOT NULL DEFAULT 1,
				spots_shared INTEGER NOT NULL DEFAULT 0,
				credits_earned INTEGER NOT NULL DEFAULT 0,
				spots_found INTEGER NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL
			);

			CREATE TABLE IF NOT EXISTS parking_spots (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				submitter_id INTEGER NOT NULL REFERENCES users (id),
				status TEXT NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'chosen', 'occupied', 'disabled')),
				reports INTEGER NOT NULL DEFAULT 0,
				chosen_by INTEGER REFERENCES users (id),
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS parking_spots_status_created_idx ON parking_spots (status, created_at);
		`,
	},
	{
		name: "create credit_ledger",
		sql: `
			CREATE TABLE IF NOT EXISTS credit_ledger (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL REFERENCES users (id),
				spot_id INTEGER REFERENCES parking_spots (id),
				reason TEXT NOT NULL,
				delta INTEGER NOT NULL,
				balance INTEGER NOT NULL,
				created_at INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS credit_ledger_user_idx ON credit_ledger (user_id, id);
		`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for i, m := range migrations {
		version := i + 1
		var count int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}

		s.logger.Info("running migration", "version", version, "name", m.name)
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version, m.name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
