package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	apperrors "github.com/B09-Adpro/udehnih-review-rating/pkg/errors"
)

func TestEnrich_StrictPolicy(t *testing.T) {
	t.Run("course missing", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		rv := f.seed(t, "S1", 4)
		f.courses.On("GetCourse", mock.Anything, "course-10").Return(nil, apperrors.NotFound("course", "course-10"))

		_, err := f.svc.GetReview(context.Background(), rv.ID)
		assert.ErrorIs(t, err, domain.ErrCourseNotFound)
	})

	t.Run("student lookup fails", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		rv := f.seed(t, "S1", 4)
		f.knowCourse("course-10", "DS")
		f.students.On("GetStudent", mock.Anything, "S1").Return(nil, errors.New("timeout"))

		_, err := f.svc.GetReview(context.Background(), rv.ID)
		assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
		assert.Equal(t, 502, apperrors.HTTPStatus(err))
	})

	t.Run("list aborts on first failure", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		f.seed(t, "S1", 4)
		f.seed(t, "S2", 4)
		f.knowCourse("course-10", "DS")
		f.knowStudent("S1", "Jane Doe")
		f.students.On("GetStudent", mock.Anything, "S2").Return(nil, errors.New("boom"))

		got, err := f.svc.ListByCourse(context.Background(), "course-10")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	})
}

func TestEnrich_PlaceholderPolicy(t *testing.T) {
	opts := DefaultOptions()
	opts.Enrichment = EnrichmentPlaceholder
	f := newFixture(t, opts)
	f.seed(t, "S1", 4)
	f.seed(t, domain.AnonymousStudentID, 2)
	f.courses.On("GetCourse", mock.Anything, "course-10").Return(nil, errors.New("course service down"))
	f.students.On("GetStudent", mock.Anything, "S1").Return(nil, apperrors.NotFound("user", "S1"))

	got, err := f.svc.ListByCourse(context.Background(), "course-10")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Course course-10", got[0].CourseName)
	assert.Equal(t, UnknownStudentName, got[0].StudentName)
	assert.Equal(t, "S1", got[0].StudentID)
	assert.Equal(t, domain.AnonymousName, got[1].StudentName)
}

func TestEnrich_PlaceholderDoesNotRelaxCreateValidation(t *testing.T) {
	opts := DefaultOptions()
	opts.Enrichment = EnrichmentPlaceholder
	f := newFixture(t, opts)
	f.knowStudent("S1", "Jane Doe")
	f.courses.On("GetCourse", mock.Anything, "ghost").Return(nil, apperrors.NotFound("course", "ghost"))

	_, err := f.svc.CreateReview(context.Background(), "S1", &CreateReviewInput{CourseID: "ghost", Rating: 5})
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
}

type slowCourses struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowCourses) GetCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &domain.Course{ID: courseID, Title: "T-" + courseID}, nil
}

type namedStudents struct{}

func (namedStudents) GetStudent(_ context.Context, id string) (*domain.Student, error) {
	return &domain.Student{StudentID: id, Name: "name-" + id}, nil
}

func TestEnrichAll_BoundedAndOrdered(t *testing.T) {
	courses := &slowCourses{}
	e := &enricher{
		courses:     courses,
		students:    namedStudents{},
		policy:      EnrichmentStrict,
		concurrency: 3,
		logger:      newTestLogger(),
	}

	reviews := make([]domain.Review, 20)
	for i := range reviews {
		reviews[i] = domain.Review{ID: fmt.Sprintf("r-%02d", i), CourseID: "c", StudentID: fmt.Sprintf("s-%d", i), Rating: 3}
	}

	got, err := e.enrichAll(context.Background(), reviews)
	require.NoError(t, err)
	require.Len(t, got, 20)
	for i, resp := range got {
		assert.Equal(t, reviews[i].ID, resp.ID)
		assert.Equal(t, "name-"+reviews[i].StudentID, resp.StudentName)
	}
	assert.LessOrEqual(t, courses.peak.Load(), int32(3))
}

func TestEnrichAll_PropagatesCancellation(t *testing.T) {
	e := &enricher{courses: &slowCourses{}, students: namedStudents{}, policy: EnrichmentStrict, logger: newTestLogger()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.enrichAll(ctx, []domain.Review{{ID: "r", CourseID: "c", StudentID: "s"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
}
