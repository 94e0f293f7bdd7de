package service

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
)

// EnrichmentPolicy decides what happens when a lookup fails while building a
// response.
type EnrichmentPolicy string

const (
	// EnrichmentStrict aborts the operation on any lookup failure.
	EnrichmentStrict EnrichmentPolicy = "strict"
	// EnrichmentPlaceholder substitutes placeholder names instead.
	EnrichmentPlaceholder EnrichmentPolicy = "placeholder"
)

// UnknownStudentName replaces a student name that could not be resolved
// under EnrichmentPlaceholder.
const UnknownStudentName = "Unknown Student"

// CourseLookup resolves courses.
type CourseLookup interface {
	GetCourse(ctx context.Context, courseID string) (*domain.Course, error)
}

// StudentLookup resolves students.
type StudentLookup interface {
	GetStudent(ctx context.Context, studentID string) (*domain.Student, error)
}

// enricher turns stored reviews into ReviewResponse values. It applies one
// failure policy to every path that builds a response.
type enricher struct {
	courses     CourseLookup
	students    StudentLookup
	policy      EnrichmentPolicy
	concurrency int
	logger      *slog.Logger
}

func courseName(courseID string, course *domain.Course) string {
	if course == nil || strings.TrimSpace(course.Title) == "" {
		return "Course " + courseID
	}
	return course.Title
}

func (e *enricher) resolveCourseName(ctx context.Context, courseID string) (string, error) {
	course, err := e.courses.GetCourse(ctx, courseID)
	if err != nil {
		if e.policy == EnrichmentPlaceholder {
			e.logger.WarnContext(ctx, "course lookup failed, using placeholder",
				slog.String("course_id", courseID),
				slog.String("error", err.Error()),
			)
			return courseName(courseID, nil), nil
		}
		return "", courseLookupError(courseID, err)
	}
	return courseName(courseID, course), nil
}

func (e *enricher) resolveStudentName(ctx context.Context, studentID string) (string, error) {
	student, err := e.students.GetStudent(ctx, studentID)
	if err != nil {
		if e.policy == EnrichmentPlaceholder {
			e.logger.WarnContext(ctx, "student lookup failed, using placeholder",
				slog.String("student_id", studentID),
				slog.String("error", err.Error()),
			)
			return UnknownStudentName, nil
		}
		return "", upstreamFailure("auth", err)
	}
	return student.Name, nil
}

// names resolves the course and student names shown for review.
func (e *enricher) names(ctx context.Context, review *domain.Review) (course, student string, err error) {
	course, err = e.resolveCourseName(ctx, review.CourseID)
	if err != nil {
		return "", "", err
	}
	if review.IsAnonymous() {
		return course, domain.AnonymousName, nil
	}

	student, err = e.resolveStudentName(ctx, review.StudentID)
	if err != nil {
		return "", "", err
	}
	return course, student, nil
}

// enrich resolves both names for review.
func (e *enricher) enrich(ctx context.Context, review *domain.Review) (*domain.ReviewResponse, error) {
	course, student, err := e.names(ctx, review)
	if err != nil {
		return nil, err
	}
	return assemble(review, course, student), nil
}

// enrichAll enriches reviews concurrently and keeps their order. The first
// failure cancels the remaining lookups.
func (e *enricher) enrichAll(ctx context.Context, reviews []domain.Review) ([]domain.ReviewResponse, error) {
	out := make([]domain.ReviewResponse, len(reviews))
	if len(reviews) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i := range reviews {
		g.Go(func() error {
			resp, err := e.enrich(gctx, &reviews[i])
			if err != nil {
				return err
			}
			out[i] = *resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func assemble(review *domain.Review, courseName, studentName string) *domain.ReviewResponse {
	resp := &domain.ReviewResponse{
		ID:          review.ID,
		CourseID:    review.CourseID,
		CourseName:  courseName,
		StudentName: studentName,
		ReviewText:  review.ReviewText,
		Rating:      review.Rating,
		CreatedAt:   review.CreatedAt,
		UpdatedAt:   review.UpdatedAt,
		Anonymous:   review.IsAnonymous(),
	}
	if !resp.Anonymous {
		resp.StudentID = review.StudentID
	}
	return resp
}
