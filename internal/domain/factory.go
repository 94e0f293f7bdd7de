package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewFactory builds new, valid reviews. It performs no I/O.
type ReviewFactory struct {
	now   func() time.Time
	newID func() string
}

// FactoryOption customizes a ReviewFactory.
type FactoryOption func(*ReviewFactory)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *ReviewFactory) { f.now = now }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(newID func() string) FactoryOption {
	return func(f *ReviewFactory) { f.newID = newID }
}

// NewReviewFactory returns a factory using UTC wall time and random UUIDs.
func NewReviewFactory(opts ...FactoryOption) *ReviewFactory {
	f := &ReviewFactory{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Now returns the factory clock's current time.
func (f *ReviewFactory) Now() time.Time {
	return f.now()
}

// NewBasicReview builds a review carrying reviewText.
func (f *ReviewFactory) NewBasicReview(courseID, studentID, reviewText string, rating int) (*Review, error) {
	return f.build(courseID, studentID, reviewText, rating)
}

// NewRatingOnlyReview builds a review without text.
func (f *ReviewFactory) NewRatingOnlyReview(courseID, studentID string, rating int) (*Review, error) {
	return f.build(courseID, studentID, "", rating)
}

// NewDetailedReview builds a review that may hide its author. When anonymous
// is set the student id is replaced by AnonymousStudentID.
func (f *ReviewFactory) NewDetailedReview(courseID, studentID, reviewText string, rating int, anonymous bool) (*Review, error) {
	if anonymous {
		studentID = AnonymousStudentID
	}
	return f.build(courseID, studentID, reviewText, rating)
}

func (f *ReviewFactory) build(courseID, studentID, reviewText string, rating int) (*Review, error) {
	if err := ValidateRating(rating); err != nil {
		return nil, err
	}

	now := f.now()
	return &Review{
		ID:         f.newID(),
		CourseID:   courseID,
		StudentID:  studentID,
		ReviewText: reviewText,
		Rating:     rating,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}, nil
}
