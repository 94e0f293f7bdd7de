package service

import (
	"errors"
	"fmt"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	apperrors "github.com/B09-Adpro/udehnih-review-rating/pkg/errors"
)

// appError wraps a domain sentinel in an AppError. The cause, when given, is
// kept in the message only so the sentinel stays the single error in the chain.
func appError(code, message string, sentinel, cause error) *apperrors.AppError {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %v", sentinel, cause)
	}
	return &apperrors.AppError{
		Code:    code,
		Message: message,
		Status:  apperrors.HTTPStatus(sentinel),
		Err:     err,
	}
}

func reviewNotFound(id string) error {
	return appError("REVIEW_NOT_FOUND", fmt.Sprintf("review with id %s not found", id), domain.ErrReviewNotFound, nil)
}

func invalidRating() error {
	return appError("INVALID_RATING",
		fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating),
		domain.ErrInvalidRating, nil)
}

func notOwner() error {
	return appError("UNAUTHORIZED_REVIEW_ACCESS", "you are not allowed to modify this review", domain.ErrUnauthorized, nil)
}

func versionConflict(id string) error {
	return appError("VERSION_CONFLICT",
		fmt.Sprintf("review %s was modified concurrently, retry the request", id),
		domain.ErrVersionConflict, nil)
}

func upstreamFailure(service string, cause error) error {
	return appError("UPSTREAM_FAILURE", fmt.Sprintf("%s service lookup failed", service), domain.ErrUpstreamFailure, cause)
}

// courseLookupError classifies a failed course lookup.
func courseLookupError(courseID string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return appError("COURSE_NOT_FOUND", fmt.Sprintf("course with id %s not found", courseID), domain.ErrCourseNotFound, nil)
	}
	return upstreamFailure("course", err)
}

// callerLookupError classifies a failed lookup of the calling student.
func callerLookupError(callerID string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return appError("CALLER_NOT_FOUND", fmt.Sprintf("student %s could not be resolved", callerID), domain.ErrCallerNotFound, nil)
	}
	return upstreamFailure("auth", err)
}

// storeError maps repository failures that carry a domain meaning.
func storeError(id string, err error) error {
	switch {
	case errors.Is(err, domain.ErrReviewNotFound):
		return reviewNotFound(id)
	case errors.Is(err, domain.ErrVersionConflict):
		return versionConflict(id)
	default:
		return err
	}
}

