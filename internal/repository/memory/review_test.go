package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	"github.com/B09-Adpro/udehnih-review-rating/internal/repository"
)

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

func newReview(id, courseID, studentID string, rating int) *domain.Review {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.Review{
		ID: id, CourseID: courseID, StudentID: studentID,
		ReviewText: "t", Rating: rating, CreatedAt: now, UpdatedAt: now, Version: 1,
	}
}

func TestRoundTrip(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()
	rv := newReview("r-1", "c-1", "S1", 4)

	require.NoError(t, repo.Create(ctx, rv))
	got, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, *rv, *got)

	// Mutating the returned copy must not touch the store.
	got.Rating = 1
	again, _ := repo.GetByID(ctx, "r-1")
	assert.Equal(t, 4, again.Rating)
}

func TestCreate_DuplicateID(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReview("r-1", "c", "s", 1)))
	assert.ErrorIs(t, repo.Create(ctx, newReview("r-1", "c", "s", 1)), domain.ErrVersionConflict)
}

func TestLists_OrderAndFilter(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newReview(fmt.Sprintf("r-%d", i), fmt.Sprintf("c-%d", i%2), "S1", 3)))
	}
	require.NoError(t, repo.Delete(ctx, "r-2", 1))

	byCourse, err := repo.ListByCourse(ctx, "c-0")
	require.NoError(t, err)
	ids := make([]string, 0, len(byCourse))
	for _, rv := range byCourse {
		ids = append(ids, rv.ID)
	}
	assert.Equal(t, []string{"r-0", "r-4"}, ids)

	byStudent, err := repo.ListByStudent(ctx, "S1")
	require.NoError(t, err)
	assert.Len(t, byStudent, 4)

	empty, err := repo.ListByCourse(ctx, "none")
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestUpdateAndDelete_Versioning(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()
	rv := newReview("r-1", "c", "s", 2)
	require.NoError(t, repo.Create(ctx, rv))

	rv.Rating = 5
	require.NoError(t, repo.Update(ctx, rv, 1))
	assert.Equal(t, 2, rv.Version)
	assert.ErrorIs(t, repo.Update(ctx, rv, 1), domain.ErrVersionConflict)
	assert.ErrorIs(t, repo.Delete(ctx, "r-1", 1), domain.ErrVersionConflict)

	require.NoError(t, repo.Delete(ctx, "r-1", 2))
	assert.ErrorIs(t, repo.Delete(ctx, "r-1", 2), domain.ErrReviewNotFound)
	assert.ErrorIs(t, repo.Update(ctx, rv, 2), domain.ErrReviewNotFound)
}

func TestConcurrentCreates(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Create(ctx, newReview(fmt.Sprintf("r-%d", i), "c", "s", 1+i%5))
		}(i)
	}
	wg.Wait()

	all, err := repo.ListByCourse(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, all, 50)
}
