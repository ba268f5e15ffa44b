package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"docarchive/internal/auth"
	"docarchive/internal/repository"
)

// AuthService checks credentials and provisions accounts.
type AuthService interface {
	// Login returns a signed session token. Unknown users and wrong passwords
	// both yield ErrInvalidCredentials.
	Login(ctx context.Context, username, password string) (string, error)

	// EnsureUser creates the account when it does not exist yet and reports
	// whether it did. Existing accounts are left untouched.
	EnsureUser(ctx context.Context, username, password string) (bool, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	log    *zap.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, log *zap.Logger) AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{users: users, tokens: tokens, log: log}
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("%w: find user: %w", ErrStorage, err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.log.Info("user_login", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return token, nil
}

func (s *authService) EnsureUser(ctx context.Context, username, password string) (bool, error) {
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("%w: find user: %w", ErrStorage, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.users.Create(ctx, username, hash); err != nil {
		return false, fmt.Errorf("%w: create user: %w", ErrStorage, err)
	}
	return true, nil
}
