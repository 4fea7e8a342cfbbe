// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loom/internal/cache"
	"loom/internal/middleware"
	"loom/internal/models"
	"loom/internal/observability"

	"gorm.io/gorm"
)

// defaultThreadTitle is the title of the thread created alongside a brand-new
// user in GetOrCreate, matching the onboarding flow of the chat frontend.
const defaultThreadTitle = "New conversation"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetOrCreate(ctx context.Context, id, username string) (*models.User, bool, error)
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user. Username uniqueness is enforced by the unique
// index, so concurrent creates with the same username yield exactly one
// success; the loser gets DUPLICATE_USERNAME.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateUsernameError(user.Username)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreate fetches the user with the given id, creating it together with
// one default thread when absent. The create runs in a single transaction so
// no user ever exists without its initial thread when this path is taken.
// The bool result reports whether a new user was created.
func (r *userRepository) GetOrCreate(ctx context.Context, id, username string) (*models.User, bool, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "UserRepository.GetOrCreate", "users")
	defer span.End()

	user, err := r.GetByID(ctx, id)
	if err == nil {
		return user, false, nil
	}
	if !models.IsCode(err, models.CodeNotFound) {
		return nil, false, err
	}

	if username == "" {
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		username = fmt.Sprintf("user_%s", short)
	}

	created := &models.User{ID: id, Username: username}
	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(created).Error; err != nil {
			return err
		}
		title := defaultThreadTitle
		thread := &models.Thread{UserID: created.ID, Title: &title}
		return tx.Create(thread).Error
	})
	if txErr != nil {
		if isUniqueConstraintError(txErr) {
			// Lost a race on id or username; the record exists now.
			user, err := r.GetByID(ctx, id)
			if err != nil {
				return nil, false, err
			}
			return user, false, nil
		}
		return nil, false, models.NewInternalError(txErr)
	}
	return created, true, nil
}

// Delete removes the user and every thread it owns in one transaction.
// Concurrent readers never observe a state where the user is gone but its
// threads remain, or vice versa.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	ctx, span := observability.StartRepositorySpan(ctx, "UserRepository.Delete", "users")
	defer span.End()

	var threadIDs []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}

		if err := tx.Model(&models.Thread{}).Where("user_id = ?", id).Pluck("id", &threadIDs).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Thread{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		return err
	}

	cache.InvalidateUser(ctx, id)
	for _, tid := range threadIDs {
		cache.InvalidateThread(ctx, tid)
	}
	middleware.ThreadCascadeDeletes.Add(float64(len(threadIDs)))
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505; sqlite reports "UNIQUE constraint failed"
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
