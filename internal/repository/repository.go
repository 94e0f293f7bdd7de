package repository

import (
	"context"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
)

// ReviewRepository persists reviews. Implementations are safe for concurrent
// use and return reviews of a course or student in insertion order.
//
// Update and Delete are conditional on expectedVersion: when the stored
// review has moved on they fail with domain.ErrVersionConflict, and when it
// is gone they fail with domain.ErrReviewNotFound.
type ReviewRepository interface {
	// Create stores a new review.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID returns the review or domain.ErrReviewNotFound.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// ListByCourse returns every review of a course. Never nil.
	ListByCourse(ctx context.Context, courseID string) ([]domain.Review, error)

	// ListByStudent returns every review written under a student id. Never nil.
	ListByStudent(ctx context.Context, studentID string) ([]domain.Review, error)

	// Update writes text, rating and updated_at and sets review.Version to
	// expectedVersion+1 on success.
	Update(ctx context.Context, review *domain.Review, expectedVersion int) error

	// Delete removes the review.
	Delete(ctx context.Context, id string, expectedVersion int) error
}
