package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"loom/internal/cache"
	"loom/internal/models"
	"loom/internal/observability"

	"gorm.io/gorm"
)

// ThreadUpdates carries the optional fields of a partial thread update.
// A nil field is left untouched.
type ThreadUpdates struct {
	Title   *string
	Preview *string
}

// ThreadRepository defines persistence operations for thread metadata.
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) error
	GetByID(ctx context.Context, id string) (*models.Thread, error)
	Update(ctx context.Context, id string, updates ThreadUpdates) (*models.Thread, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Thread, int64, error)
	Delete(ctx context.Context, id string) error
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository returns a new ThreadRepository implementation.
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

// Create inserts a thread after verifying its owner exists. The existence
// check and the insert share one transaction, so the owner cannot vanish
// between the check and the write; the Postgres FK is a second line of
// defense and also maps to USER_NOT_FOUND.
func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Select("id").First(&owner, "id = ?", thread.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewUserNotFoundError(thread.UserID)
			}
			return models.NewInternalError(err)
		}
		if err := tx.Create(thread).Error; err != nil {
			if isForeignKeyError(err) {
				return models.NewUserNotFoundError(thread.UserID)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	return err
}

func (r *threadRepository) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	var thread models.Thread
	key := cache.ThreadKey(id)

	err := cache.Aside(ctx, key, &thread, cache.ThreadTTL, func() error {
		if err := r.db.WithContext(ctx).First(&thread, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Thread", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// Update applies a partial update. Only supplied fields change; updated_at is
// refreshed on every successful call regardless of which fields changed, which
// moves the thread to the front of its owner's listing. user_id, id and
// created_at are never mutable through this operation.
func (r *threadRepository) Update(ctx context.Context, id string, updates ThreadUpdates) (*models.Thread, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "ThreadRepository.Update", "threads")
	defer span.End()

	var thread models.Thread
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&thread, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Thread", id)
			}
			return models.NewInternalError(err)
		}

		now := time.Now()
		values := map[string]interface{}{
			"updated_at": now,
		}
		if updates.Title != nil {
			values["title"] = *updates.Title
		}
		if updates.Preview != nil {
			values["preview"] = *updates.Preview
		}

		if err := tx.Model(&thread).Updates(values).Error; err != nil {
			return models.NewInternalError(err)
		}

		thread.UpdatedAt = now
		if updates.Title != nil {
			thread.Title = updates.Title
		}
		if updates.Preview != nil {
			thread.Preview = updates.Preview
		}
		return nil
	})
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		return nil, err
	}

	cache.InvalidateThread(ctx, id)
	return &thread, nil
}

// ListByUser returns one page of the user's threads ordered by recency
// (updated_at descending, id descending as a deterministic tiebreak) together
// with the total count. An unknown user or a user without threads yields an
// empty page, not an error.
func (r *threadRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Thread, int64, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "ThreadRepository.ListByUser", "threads")
	defer span.End()

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Thread{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	threads := []models.Thread{}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&threads).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return threads, total, nil
}

// Delete removes a single thread. The owning user is untouched. Deletion is
// the caller's signal to purge the corresponding state in the conversational
// engine; this store does not orchestrate that purge.
func (r *threadRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Thread{}, "id = ?", id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Thread", id)
	}

	cache.InvalidateThread(ctx, id)
	return nil
}

// isForeignKeyError checks if a DB error is a foreign key violation.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL foreign key violation SQLSTATE 23503
	return strings.Contains(msg, "foreign key") ||
		strings.Contains(msg, "23503")
}
