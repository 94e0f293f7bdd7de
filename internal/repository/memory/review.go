package memory

import (
	"context"
	"sync"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
)

// ReviewRepository is an in-process store used for local runs and tests.
type ReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
	order   []string
}

// NewReviewRepository creates an empty in-memory review repository.
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{reviews: make(map[string]domain.Review)}
}

// Create stores a copy of review.
func (r *ReviewRepository) Create(_ context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reviews[review.ID]; ok {
		return domain.ErrVersionConflict
	}
	r.reviews[review.ID] = *review
	r.order = append(r.order, review.ID)
	return nil
}

// GetByID returns a copy of the stored review.
func (r *ReviewRepository) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rv, ok := r.reviews[id]
	if !ok {
		return nil, domain.ErrReviewNotFound
	}
	return &rv, nil
}

// ListByCourse returns the reviews of a course in insertion order.
func (r *ReviewRepository) ListByCourse(_ context.Context, courseID string) ([]domain.Review, error) {
	return r.filter(func(rv *domain.Review) bool { return rv.CourseID == courseID }), nil
}

// ListByStudent returns the reviews written under a student id in insertion order.
func (r *ReviewRepository) ListByStudent(_ context.Context, studentID string) ([]domain.Review, error) {
	return r.filter(func(rv *domain.Review) bool { return rv.StudentID == studentID }), nil
}

func (r *ReviewRepository) filter(keep func(*domain.Review) bool) []domain.Review {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Review{}
	for _, id := range r.order {
		rv := r.reviews[id]
		if keep(&rv) {
			out = append(out, rv)
		}
	}
	return out
}

// Update writes the mutable fields when the stored version still matches.
func (r *ReviewRepository) Update(_ context.Context, review *domain.Review, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reviews[review.ID]
	if !ok {
		return domain.ErrReviewNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	stored.ReviewText = review.ReviewText
	stored.Rating = review.Rating
	stored.UpdatedAt = review.UpdatedAt
	stored.Version = expectedVersion + 1
	r.reviews[review.ID] = stored

	review.Version = stored.Version
	return nil
}

// Delete removes the review when the stored version still matches.
func (r *ReviewRepository) Delete(_ context.Context, id string, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reviews[id]
	if !ok {
		return domain.ErrReviewNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	delete(r.reviews, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
