package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hongminglow/parkshare/internal/models"
	"github.com/hongminglow/parkshare/internal/storage"
)

const userColumns = `id, username, email, password_hash, credits, spots_shared, credits_earned, spots_found, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (username, email, password_hash, credits)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Credits)
	created, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", mapError(err))
	}
	return created, nil
}

// FindByUsernameOrEmail fetches the first user matching the identifier as username or email.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1 LIMIT 1`
	return scanUser(s.db.QueryRowContext(ctx, query, identifier))
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// LockUser loads a user row with FOR UPDATE.
func (t *pgTx) LockUser(ctx context.Context, id int64) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	user, err := scanUser(t.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.User{}, fmt.Errorf("lock user %d: %w", id, err)
	}
	return user, nil
}

// AdjustUser applies delta to the user's counters.
func (t *pgTx) AdjustUser(ctx context.Context, id int64, delta models.UserDelta) (models.User, error) {
	const query = `
		UPDATE users
		SET credits = credits + $1,
			credits_earned = credits_earned + $2,
			spots_shared = spots_shared + $3,
			spots_found = spots_found + $4
		WHERE id = $5
		RETURNING ` + userColumns

	row := t.q.QueryRowContext(ctx, query, delta.Credits, delta.CreditsEarned, delta.SpotsShared, delta.SpotsFound, id)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("adjust user %d: %w", id, err)
	}
	return user, nil
}

func scanUser(row scanner) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Credits, &user.SpotsShared, &user.CreditsEarned, &user.SpotsFound, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, mapError(err)
	}
	return user, nil
}
