// Package service provides application business logic over the repositories.
package service

import (
	"context"
	"strings"

	"loom/internal/models"
	"loom/internal/repository"
)

const maxUsernameLen = 30

// UserService owns the user identity lifecycle: registration, lookup, and
// deletion with its thread cascade.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateUser registers a new user. Usernames are matched exactly
// (case-sensitive): "Alice" and "alice" are distinct.
func (s *UserService) CreateUser(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("Username is required")
	}
	if len(username) > maxUsernameLen {
		return nil, models.NewValidationError("Username too long (max 30 characters)")
	}

	user := &models.User{Username: username}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser looks up a user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// EnsureUser fetches the user with the given id, creating it (with a default
// thread) when absent. The bool result reports whether the user was created.
func (s *UserService) EnsureUser(ctx context.Context, id, username string) (*models.User, bool, error) {
	if id == "" {
		return nil, false, models.NewValidationError("User ID is required")
	}
	if len(username) > maxUsernameLen {
		return nil, false, models.NewValidationError("Username too long (max 30 characters)")
	}
	return s.userRepo.GetOrCreate(ctx, id, strings.TrimSpace(username))
}

// DeleteUser removes the user and, in the same atomic operation, every
// thread it owns. Irreversible.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.userRepo.Delete(ctx, id)
}
