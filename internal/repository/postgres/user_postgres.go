package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docarchive/internal/database"
	"docarchive/internal/model"
	"docarchive/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

// FindByUsername fetches a single user by username.
func (r *UserPostgres) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if r.db == nil {
		return nil, database.ErrNotInitialized
	}

	const q = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, username).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a user row and returns its ID.
func (r *UserPostgres) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	if r.db == nil {
		return 0, database.ErrNotInitialized
	}

	const q = `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, username, passwordHash).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
