package service

import (
	"context"

	"loom/internal/models"
	"loom/internal/repository"
)

const (
	maxTitleLen   = 200
	maxPreviewLen = 500

	defaultPageSize = 20
	maxPageSize     = 100
)

// ThreadService owns thread metadata operations scoped to an owning user.
type ThreadService struct {
	threadRepo repository.ThreadRepository
}

// CreateThreadInput is the input for creating a thread.
type CreateThreadInput struct {
	UserID  string
	Title   *string
	Preview *string
}

// UpdateThreadInput carries the optional fields of a partial thread update.
type UpdateThreadInput struct {
	Title   *string
	Preview *string
}

// ThreadPage is one page of a user's threads, most recently active first.
type ThreadPage struct {
	Threads  []models.Thread `json:"threads"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// NewThreadService returns a new ThreadService.
func NewThreadService(threadRepo repository.ThreadRepository) *ThreadService {
	return &ThreadService{threadRepo: threadRepo}
}

// CreateThread creates a thread owned by the given user. Fails with
// USER_NOT_FOUND when the owner does not exist.
func (s *ThreadService) CreateThread(ctx context.Context, in CreateThreadInput) (*models.Thread, error) {
	if in.UserID == "" {
		return nil, models.NewValidationError("User ID is required")
	}
	if err := validateFields(in.Title, in.Preview); err != nil {
		return nil, err
	}

	thread := &models.Thread{
		UserID:  in.UserID,
		Title:   in.Title,
		Preview: in.Preview,
	}
	if err := s.threadRepo.Create(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// GetThread looks up a thread by id.
func (s *ThreadService) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	return s.threadRepo.GetByID(ctx, id)
}

// UpdateThread applies a partial update; unsupplied fields are untouched and
// the thread's recency is refreshed either way.
func (s *ThreadService) UpdateThread(ctx context.Context, id string, in UpdateThreadInput) (*models.Thread, error) {
	if err := validateFields(in.Title, in.Preview); err != nil {
		return nil, err
	}
	return s.threadRepo.Update(ctx, id, repository.ThreadUpdates{
		Title:   in.Title,
		Preview: in.Preview,
	})
}

// ListThreads returns one page of the user's threads ordered by recency.
// A missing or thread-less user yields an empty page, not an error.
func (s *ThreadService) ListThreads(ctx context.Context, userID string, page, pageSize int) (*ThreadPage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	offset := (page - 1) * pageSize
	threads, total, err := s.threadRepo.ListByUser(ctx, userID, pageSize, offset)
	if err != nil {
		return nil, err
	}

	return &ThreadPage{
		Threads:  threads,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// DeleteThread removes a single thread; the owning user is untouched.
func (s *ThreadService) DeleteThread(ctx context.Context, id string) error {
	return s.threadRepo.Delete(ctx, id)
}

func validateFields(title, preview *string) error {
	if title != nil && len(*title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if preview != nil && len(*preview) > maxPreviewLen {
		return models.NewValidationError("Preview too long (max 500 characters)")
	}
	return nil
}
