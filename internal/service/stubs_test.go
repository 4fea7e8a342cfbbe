package service

import (
	"context"

	"loom/internal/models"
	"loom/internal/repository"
)

// Function-field stubs let each test override only the calls it cares about.

type userRepoStub struct {
	createFn      func(ctx context.Context, user *models.User) error
	getByIDFn     func(ctx context.Context, id string) (*models.User, error)
	getOrCreateFn func(ctx context.Context, id, username string) (*models.User, bool, error)
	deleteFn      func(ctx context.Context, id string) error
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, user)
	}
	return nil
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return &models.User{ID: id}, nil
}

func (s *userRepoStub) GetOrCreate(ctx context.Context, id, username string) (*models.User, bool, error) {
	if s.getOrCreateFn != nil {
		return s.getOrCreateFn(ctx, id, username)
	}
	return &models.User{ID: id, Username: username}, true, nil
}

func (s *userRepoStub) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

type threadRepoStub struct {
	createFn     func(ctx context.Context, thread *models.Thread) error
	getByIDFn    func(ctx context.Context, id string) (*models.Thread, error)
	updateFn     func(ctx context.Context, id string, updates repository.ThreadUpdates) (*models.Thread, error)
	listByUserFn func(ctx context.Context, userID string, limit, offset int) ([]models.Thread, int64, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (s *threadRepoStub) Create(ctx context.Context, thread *models.Thread) error {
	if s.createFn != nil {
		return s.createFn(ctx, thread)
	}
	return nil
}

func (s *threadRepoStub) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return &models.Thread{ID: id}, nil
}

func (s *threadRepoStub) Update(ctx context.Context, id string, updates repository.ThreadUpdates) (*models.Thread, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, updates)
	}
	return &models.Thread{ID: id, Title: updates.Title, Preview: updates.Preview}, nil
}

func (s *threadRepoStub) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Thread, int64, error) {
	if s.listByUserFn != nil {
		return s.listByUserFn(ctx, userID, limit, offset)
	}
	return []models.Thread{}, 0, nil
}

func (s *threadRepoStub) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}
