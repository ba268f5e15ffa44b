package repository

import (
	"context"

	"docarchive/internal/model"
)

// UserRepository provides read/write access to user accounts.
type UserRepository interface {
	// FindByUsername returns ErrNotFound when the username is unknown.
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create inserts a user and returns its ID.
	Create(ctx context.Context, username, passwordHash string) (int64, error)
}
