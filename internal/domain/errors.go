package domain

import (
	"fmt"

	apperrors "github.com/B09-Adpro/udehnih-review-rating/pkg/errors"
)

// Review errors. Each wraps a generic sentinel from pkg/errors so the HTTP
// layer can map it to a status without knowing about reviews.
var (
	ErrInvalidRating   = fmt.Errorf("rating must be between %d and %d: %w", MinRating, MaxRating, apperrors.ErrInvalidInput)
	ErrReviewNotFound  = fmt.Errorf("review not found: %w", apperrors.ErrNotFound)
	ErrCourseNotFound  = fmt.Errorf("course not found: %w", apperrors.ErrNotFound)
	ErrCallerNotFound  = fmt.Errorf("caller could not be resolved: %w", apperrors.ErrUnauthorized)
	ErrUnauthorized    = fmt.Errorf("caller does not own the review: %w", apperrors.ErrForbidden)
	ErrUpstreamFailure = fmt.Errorf("upstream lookup failed: %w", apperrors.ErrBadGateway)
	ErrVersionConflict = fmt.Errorf("review was modified concurrently: %w", apperrors.ErrConflict)
)

// ValidateRating returns ErrInvalidRating when rating is out of bounds.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}
