package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hongminglow/parkshare/internal/models"
	"github.com/hongminglow/parkshare/internal/storage"
)

const userColumns = `id, username, email, password_hash, credits, spots_shared, credits_earned, spots_found, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (username, email, password_hash, credits, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING ` + userColumns

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	row := s.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Credits, createdAt.UnixNano())
	created, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// FindByUsernameOrEmail fetches the first user matching the identifier as username or email.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = ? OR email = ? LIMIT 1`
	return scanUser(s.db.QueryRowContext(ctx, query, identifier, identifier))
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// LockUser loads a user row. The single connection already excludes other writers.
func (t *sqliteTx) LockUser(ctx context.Context, id int64) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(t.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.User{}, fmt.Errorf("lock user %d: %w", id, err)
	}
	return user, nil
}

// AdjustUser applies delta to the user's counters.
func (t *sqliteTx) AdjustUser(ctx context.Context, id int64, delta models.UserDelta) (models.User, error) {
	const query = `
		UPDATE users
		SET credits = credits + ?,
			credits_earned = credits_earned + ?,
			spots_shared = spots_shared + ?,
			spots_found = spots_found + ?
		WHERE id = ?
		RETURNING ` + userColumns

	row := t.q.QueryRowContext(ctx, query, delta.Credits, delta.CreditsEarned, delta.SpotsShared, delta.SpotsFound, id)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("adjust user %d: %w", id, err)
	}
	return user, nil
}

func scanUser(row scanner) (models.User, error) {
	var (
		user      models.User
		createdAt int64
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Credits, &user.SpotsShared, &user.CreditsEarned, &user.SpotsFound, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, mapError(err)
	}
	user.CreatedAt = fromNanos(createdAt)
	return user, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
