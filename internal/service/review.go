package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	"github.com/B09-Adpro/udehnih-review-rating/internal/repository"
	apperrors "github.com/B09-Adpro/udehnih-review-rating/pkg/errors"
)

// AnonymousEditPolicy decides who may modify an anonymous review.
type AnonymousEditPolicy string

const (
	// AnonymousEditOpen lets any authenticated caller modify anonymous reviews.
	AnonymousEditOpen AnonymousEditPolicy = "open"
	// AnonymousEditLocked makes anonymous reviews immutable.
	AnonymousEditLocked AnonymousEditPolicy = "locked"
)

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	CourseID   string
	ReviewText string
	Rating     int
	Anonymous  bool
}

// UpdateReviewInput holds the new text and rating of a review.
type UpdateReviewInput struct {
	ReviewText string
	Rating     int
}

// EventProducer publishes review lifecycle events.
type EventProducer interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishReviewUpdated(ctx context.Context, review *domain.Review) error
	PublishReviewDeleted(ctx context.Context, review *domain.Review) error
}

// Options tunes the review service policies.
type Options struct {
	Enrichment    EnrichmentPolicy
	AnonymousEdit AnonymousEditPolicy
	// ListConcurrency bounds parallel enrichment of list results. 0 is unbounded.
	ListConcurrency int
}

// DefaultOptions returns the policies the service ships with.
func DefaultOptions() Options {
	return Options{
		Enrichment:      EnrichmentStrict,
		AnonymousEdit:   AnonymousEditOpen,
		ListConcurrency: 8,
	}
}

// ReviewService implements the business logic for review operations. Every
// operation that acts on behalf of someone takes the caller id explicitly.
type ReviewService struct {
	repo     repository.ReviewRepository
	factory  *domain.ReviewFactory
	courses  CourseLookup
	students StudentLookup
	producer EventProducer
	enricher *enricher
	opts     Options
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	repo repository.ReviewRepository,
	factory *domain.ReviewFactory,
	courses CourseLookup,
	students StudentLookup,
	producer EventProducer,
	opts Options,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		repo:     repo,
		factory:  factory,
		courses:  courses,
		students: students,
		producer: producer,
		enricher: &enricher{
			courses:     courses,
			students:    students,
			policy:      opts.Enrichment,
			concurrency: opts.ListConcurrency,
			logger:      logger,
		},
		opts:   opts,
		logger: logger,
	}
}

// CreateReview validates the caller and the course against their services,
// builds the review and stores it.
func (s *ReviewService) CreateReview(ctx context.Context, callerID string, input *CreateReviewInput) (*domain.ReviewResponse, error) {
	if strings.TrimSpace(callerID) == "" || callerID == domain.AnonymousStudentID {
		return nil, callerLookupError(callerID, apperrors.ErrNotFound)
	}

	student, err := s.students.GetStudent(ctx, callerID)
	if err != nil {
		return nil, callerLookupError(callerID, err)
	}

	course, err := s.courses.GetCourse(ctx, input.CourseID)
	if err != nil {
		return nil, courseLookupError(input.CourseID, err)
	}

	review, err := s.build(callerID, input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRating) {
			return nil, invalidRating()
		}
		return nil, err
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("course_id", review.CourseID),
		slog.Int("rating", review.Rating),
		slog.Bool("anonymous", review.IsAnonymous()),
	)

	studentName := student.Name
	if review.IsAnonymous() {
		studentName = domain.AnonymousName
	}
	return assemble(review, courseName(review.CourseID, course), studentName), nil
}

// build picks the factory shape: anonymous reviews go through the detailed
// constructor, blank text yields a rating-only review.
func (s *ReviewService) build(callerID string, input *CreateReviewInput) (*domain.Review, error) {
	switch {
	case input.Anonymous:
		return s.factory.NewDetailedReview(input.CourseID, callerID, input.ReviewText, input.Rating, true)
	case strings.TrimSpace(input.ReviewText) == "":
		return s.factory.NewRatingOnlyReview(input.CourseID, callerID, input.Rating)
	default:
		return s.factory.NewBasicReview(input.CourseID, callerID, input.ReviewText, input.Rating)
	}
}

// GetReview returns a single enriched review.
func (s *ReviewService) GetReview(ctx context.Context, reviewID string) (*domain.ReviewResponse, error) {
	review, err := s.load(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	return s.enricher.enrich(ctx, review)
}

// ListByCourse returns the enriched reviews of a course in store order.
func (s *ReviewService) ListByCourse(ctx context.Context, courseID string) ([]domain.ReviewResponse, error) {
	reviews, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by course: %w", err)
	}
	return s.enricher.enrichAll(ctx, reviews)
}

// ListByStudent returns the enriched reviews written under a student id in
// store order. Anonymous reviews are stored without their author and are
// therefore never listed here, not even under the anonymous marker.
func (s *ReviewService) ListByStudent(ctx context.Context, studentID string) ([]domain.ReviewResponse, error) {
	if studentID == domain.AnonymousStudentID {
		return []domain.ReviewResponse{}, nil
	}
	reviews, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by student: %w", err)
	}
	return s.enricher.enrichAll(ctx, reviews)
}

// UpdateReview replaces the text and rating of a review owned by the caller.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, callerID string, input *UpdateReviewInput) (*domain.ReviewResponse, error) {
	review, err := s.load(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !s.canModify(review, callerID) {
		return nil, notOwner()
	}
	if err := domain.ValidateRating(input.Rating); err != nil {
		return nil, invalidRating()
	}

	// Names are resolved before the write so a failed lookup leaves the
	// stored review untouched.
	course, student, err := s.enricher.names(ctx, review)
	if err != nil {
		return nil, err
	}

	expected := review.Version
	review.ReviewText = input.ReviewText
	review.Rating = input.Rating
	review.UpdatedAt = s.factory.Now()

	if err := s.repo.Update(ctx, review, expected); err != nil {
		return nil, fmt.Errorf("update review: %w", storeError(reviewID, err))
	}

	if err := s.producer.PublishReviewUpdated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.Int("rating", review.Rating),
		slog.Int("version", review.Version),
	)

	return assemble(review, course, student), nil
}

// DeleteReview removes a review owned by the caller.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, callerID string) (bool, error) {
	review, err := s.load(ctx, reviewID)
	if err != nil {
		return false, err
	}
	if !s.canModify(review, callerID) {
		return false, notOwner()
	}

	if err := s.repo.Delete(ctx, reviewID, review.Version); err != nil {
		return false, fmt.Errorf("delete review: %w", storeError(reviewID, err))
	}

	if err := s.producer.PublishReviewDeleted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted", slog.String("review_id", reviewID))
	return true, nil
}

// AverageRating returns the mean rating of a course, 0 when it has no reviews.
func (s *ReviewService) AverageRating(ctx context.Context, courseID string) (float64, error) {
	reviews, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("list reviews by course: %w", err)
	}
	if len(reviews) == 0 {
		return 0, nil
	}

	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews)), nil
}

func (s *ReviewService) load(ctx context.Context, reviewID string) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrReviewNotFound) {
			return nil, reviewNotFound(reviewID)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// canModify reports whether callerID may update or delete review.
func (s *ReviewService) canModify(review *domain.Review, callerID string) bool {
	if review.IsAnonymous() {
		return s.opts.AnonymousEdit != AnonymousEditLocked
	}
	return callerID != "" && review.StudentID == callerID
}
