package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"loom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupStoreDB opens an in-memory sqlite database with the full schema.
// MaxOpenConns(1) keeps every connection on the same in-memory instance.
func setupStoreDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Thread{}))
	return db
}

func strPtr(s string) *string { return &s }

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := setupStoreDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "alice"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = repo.GetByID(ctx, "11111111-1111-1111-1111-111111111111")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := setupStoreDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "bob"}))

	err := repo.Create(ctx, &models.User{Username: "bob"})
	assert.True(t, models.IsCode(err, models.CodeDuplicateUsername))

	// Case-sensitive matching: a different casing is a different user.
	assert.NoError(t, repo.Create(ctx, &models.User{Username: "Bob"}))
}

func TestUserRepository_DuplicateUsername_Concurrent(t *testing.T) {
	db := setupStoreDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	const username = "raceduser"
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &models.User{Username: username})
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case models.IsCode(err, models.CodeDuplicateUsername):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one create must win")
	assert.Equal(t, 1, duplicates, "the loser must get DUPLICATE_USERNAME")
}

func TestUserRepository_GetOrCreate(t *testing.T) {
	db := setupStoreDB(t)
	userRepo := NewUserRepository(db)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	id := "22222222-2222-2222-2222-222222222222"

	user, created, err := userRepo.GetOrCreate(ctx, id, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "user_22222222", user.Username)

	// A brand-new user starts with one default thread.
	threads, total, err := threadRepo.ListByUser(ctx, id, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, threads, 1)
	require.NotNil(t, threads[0].Title)
	assert.Equal(t, defaultThreadTitle, *threads[0].Title)

	// Second call is a plain fetch; no extra thread appears.
	again, created, err := userRepo.GetOrCreate(ctx, id, "ignored")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.Username, again.Username)

	_, total, err = threadRepo.ListByUser(ctx, id, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestUserRepository_Delete_Cascades(t *testing.T) {
	db := setupStoreDB(t)
	userRepo := NewUserRepository(db)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "cascade"}
	require.NoError(t, userRepo.Create(ctx, user))

	t1 := &models.Thread{UserID: user.ID, Title: strPtr("one")}
	t2 := &models.Thread{UserID: user.ID}
	require.NoError(t, threadRepo.Create(ctx, t1))
	require.NoError(t, threadRepo.Create(ctx, t2))

	// An unrelated user's thread must survive the cascade.
	other := &models.User{Username: "bystander"}
	require.NoError(t, userRepo.Create(ctx, other))
	keep := &models.Thread{UserID: other.ID}
	require.NoError(t, threadRepo.Create(ctx, keep))

	require.NoError(t, userRepo.Delete(ctx, user.ID))

	_, err := userRepo.GetByID(ctx, user.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = threadRepo.GetByID(ctx, t1.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = threadRepo.GetByID(ctx, t2.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	got, err := threadRepo.GetByID(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.UserID)

	// Deleting again reports NotFound.
	err = userRepo.Delete(ctx, user.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestThreadRepository_Create_RequiresOwner(t *testing.T) {
	db := setupStoreDB(t)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	thread := &models.Thread{UserID: "33333333-3333-3333-3333-333333333333"}
	err := threadRepo.Create(ctx, thread)
	assert.True(t, models.IsCode(err, models.CodeUserNotFound))

	// The failed create must leave no record behind.
	var count int64
	require.NoError(t, db.Model(&models.Thread{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestThreadRepository_Update_Partial(t *testing.T) {
	db := setupStoreDB(t)
	userRepo := NewUserRepository(db)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "editor"}
	require.NoError(t, userRepo.Create(ctx, user))
	thread := &models.Thread{UserID: user.ID, Title: strPtr("orig"), Preview: strPtr("p0")}
	require.NoError(t, threadRepo.Create(ctx, thread))

	before, err := threadRepo.GetByID(ctx, thread.ID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	updated, err := threadRepo.Update(ctx, thread.ID, ThreadUpdates{Title: strPtr("new title")})
	require.NoError(t, err)

	assert.Equal(t, "new title", *updated.Title)
	assert.Equal(t, "p0", *updated.Preview, "preview must be untouched")
	assert.Equal(t, before.UserID, updated.UserID)
	assert.Equal(t, before.ID, updated.ID)
	assert.Equal(t, before.CreatedAt.Unix(), updated.CreatedAt.Unix())
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt), "updated_at must be refreshed")

	// An empty update still refreshes recency.
	time.Sleep(10 * time.Millisecond)
	touched, err := threadRepo.Update(ctx, thread.ID, ThreadUpdates{})
	require.NoError(t, err)
	assert.True(t, touched.UpdatedAt.After(updated.UpdatedAt))
	assert.Equal(t, "new title", *touched.Title)

	_, err = threadRepo.Update(ctx, "44444444-4444-4444-4444-444444444444", ThreadUpdates{})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestThreadRepository_ListByUser_Ordering(t *testing.T) {
	db := setupStoreDB(t)
	userRepo := NewUserRepository(db)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "lister"}
	require.NoError(t, userRepo.Create(ctx, user))

	t1 := &models.Thread{UserID: user.ID, Title: strPtr("hi")}
	require.NoError(t, threadRepo.Create(ctx, t1))
	time.Sleep(10 * time.Millisecond)
	t2 := &models.Thread{UserID: user.ID, Title: strPtr("yo")}
	require.NoError(t, threadRepo.Create(ctx, t2))

	threads, total, err := threadRepo.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, threads, 2)
	assert.Equal(t, t2.ID, threads[0].ID, "most recently active first")
	assert.Equal(t, t1.ID, threads[1].ID)

	// Updating t1 moves it to the front of the next listing.
	time.Sleep(10 * time.Millisecond)
	_, err = threadRepo.Update(ctx, t1.ID, ThreadUpdates{Preview: strPtr("new")})
	require.NoError(t, err)

	threads, _, err = threadRepo.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, t1.ID, threads[0].ID)
	assert.Equal(t, t2.ID, threads[1].ID)

	// Non-increasing updated_at across the page.
	for i := 1; i < len(threads); i++ {
		assert.False(t, threads[i].UpdatedAt.After(threads[i-1].UpdatedAt))
	}
}

func TestThreadRepository_ListByUser_DeterministicOnEqualTimestamps(t *testing.T) {
	db := setupStoreDB(t)
	userRepo := NewUserRepository(db)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "tied"}
	require.NoError(t, userRepo.Create(ctx, user))

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 3; i++ {
		thread := &models.Thread{UserID: user.ID}
		require.NoError(t, threadRepo.Create(ctx, thread))
		require.NoError(t, db.Model(&models.Thread{}).
			Where("id = ?", thread.ID).
			Update("updated_at", ts).Error)
	}

	first, _, err := threadRepo.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	second, _, err := threadRepo.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)

	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "order must be stable under equal timestamps")
	}
}

func TestThreadRepository_ListByUser_EmptyAndUnknown(t *testing.T) {
	db := setupStoreDB(t)
	userRepo := NewUserRepository(db)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "empty"}
	require.NoError(t, userRepo.Create(ctx, user))

	threads, total, err := threadRepo.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, threads)

	// Unknown user: empty page, not an error.
	threads, total, err = threadRepo.ListByUser(ctx, "55555555-5555-5555-5555-555555555555", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, threads)
}

func TestThreadRepository_ListByUser_Pagination(t *testing.T) {
	db := setupStoreDB(t)
	userRepo := NewUserRepository(db)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "pager"}
	require.NoError(t, userRepo.Create(ctx, user))

	var ids []string
	for i := 0; i < 5; i++ {
		thread := &models.Thread{UserID: user.ID}
		require.NoError(t, threadRepo.Create(ctx, thread))
		ids = append(ids, thread.ID)
		time.Sleep(5 * time.Millisecond)
	}

	page1, total, err := threadRepo.ListByUser(ctx, user.ID, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[4], page1[0].ID)
	assert.Equal(t, ids[3], page1[1].ID)

	page3, total, err := threadRepo.ListByUser(ctx, user.ID, 2, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page3, 1)
	assert.Equal(t, ids[0], page3[0].ID)
}

func TestThreadRepository_Delete(t *testing.T) {
	db := setupStoreDB(t)
	userRepo := NewUserRepository(db)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "deleter"}
	require.NoError(t, userRepo.Create(ctx, user))
	thread := &models.Thread{UserID: user.ID}
	require.NoError(t, threadRepo.Create(ctx, thread))

	require.NoError(t, threadRepo.Delete(ctx, thread.ID))

	_, err := threadRepo.GetByID(ctx, thread.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	// The owning user is untouched.
	_, err = userRepo.GetByID(ctx, user.ID)
	assert.NoError(t, err)

	err = threadRepo.Delete(ctx, thread.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

// TestStore_EndToEndScenario walks the full lifecycle: registration, two
// threads, recency reordering via update, and the user cascade.
func TestStore_EndToEndScenario(t *testing.T) {
	db := setupStoreDB(t)
	userRepo := NewUserRepository(db)
	threadRepo := NewThreadRepository(db)
	ctx := context.Background()

	alice := &models.User{Username: "alice-e2e"}
	require.NoError(t, userRepo.Create(ctx, alice))

	t1 := &models.Thread{UserID: alice.ID, Title: strPtr("hi")}
	require.NoError(t, threadRepo.Create(ctx, t1))
	time.Sleep(10 * time.Millisecond)
	t2 := &models.Thread{UserID: alice.ID, Title: strPtr("yo")}
	require.NoError(t, threadRepo.Create(ctx, t2))

	threads, _, err := threadRepo.ListByUser(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, []string{t2.ID, t1.ID}, []string{threads[0].ID, threads[1].ID})

	time.Sleep(10 * time.Millisecond)
	_, err = threadRepo.Update(ctx, t1.ID, ThreadUpdates{Preview: strPtr("new")})
	require.NoError(t, err)

	threads, _, err = threadRepo.ListByUser(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{t1.ID, t2.ID}, []string{threads[0].ID, threads[1].ID})

	require.NoError(t, userRepo.Delete(ctx, alice.ID))

	_, err = threadRepo.GetByID(ctx, t1.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = threadRepo.GetByID(ctx, t2.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
