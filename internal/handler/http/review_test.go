package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B09-Adpro/udehnih-review-rating/internal/auth"
	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	"github.com/B09-Adpro/udehnih-review-rating/internal/event"
	"github.com/B09-Adpro/udehnih-review-rating/internal/repository/memory"
	"github.com/B09-Adpro/udehnih-review-rating/internal/service"
	apperrors "github.com/B09-Adpro/udehnih-review-rating/pkg/errors"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/health"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/middleware"
)

// --- Stub lookups ---

type stubCourses struct {
	titles map[string]string
}

func (s *stubCourses) GetCourse(_ context.Context, id string) (*domain.Course, error) {
	title, ok := s.titles[id]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", id, apperrors.ErrNotFound)
	}
	return &domain.Course{ID: id, Title: title}, nil
}

type stubStudents struct {
	mu     sync.Mutex
	names  map[string]string
	tokens []string
}

func (s *stubStudents) GetStudent(ctx context.Context, id string) (*domain.Student, error) {
	s.mu.Lock()
	s.tokens = append(s.tokens, middleware.BearerTokenFromContext(ctx))
	s.mu.Unlock()

	name, ok := s.names[id]
	if !ok {
		return nil, fmt.Errorf("student %s: %w", id, apperrors.ErrNotFound)
	}
	return &domain.Student{StudentID: id, Name: name}, nil
}

// --- Test Helpers ---

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	handler  http.Handler
	students *stubStudents
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	students := &stubStudents{names: map[string]string{"S1": "Jane Doe", "S2": "John Roe"}}
	courses := &stubCourses{titles: map[string]string{"course-10": "Distributed Systems"}}

	svc := service.NewReviewService(memory.NewReviewRepository(), domain.NewReviewFactory(),
		courses, students, event.NoopProducer{}, service.DefaultOptions(), logger)

	return &testServer{
		handler:  NewRouter(svc, health.NewHandler(), auth.HeaderResolver(), RouterConfig{CORSOrigins: []string{"*"}}, logger),
		students: students,
	}
}

func (s *testServer) do(t *testing.T, method, path, caller string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(b)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(auth.UserIDHeader, caller)
		req.Header.Set("Authorization", "Bearer token-"+caller)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *testServer) create(t *testing.T, caller string, req CreateReviewRequest) domain.ReviewResponse {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/reviews", caller, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp domain.ReviewResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

// --- Tests ---

func TestCreateReview_Created(t *testing.T) {
	s := newTestServer(t)

	resp := s.create(t, "S1", CreateReviewRequest{CourseID: "course-10", ReviewText: "Great!", Rating: 5})

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Distributed Systems", resp.CourseName)
	assert.Equal(t, "Jane Doe", resp.StudentName)
	assert.Equal(t, "S1", resp.StudentID)
	assert.Equal(t, "Great!", resp.ReviewText)
	assert.Equal(t, 5, resp.Rating)
	assert.False(t, resp.Anonymous)
	assert.Contains(t, s.students.tokens, "token-S1")
}

func TestCreateReview_Anonymous(t *testing.T) {
	s := newTestServer(t)

	resp := s.create(t, "S1", CreateReviewRequest{CourseID: "course-10", ReviewText: "meh", Rating: 3, Anonymous: true})

	assert.True(t, resp.Anonymous)
	assert.Equal(t, domain.AnonymousName, resp.StudentName)
	assert.Empty(t, resp.StudentID)
}

func TestCreateReview_Errors(t *testing.T) {
	tests := []struct {
		name       string
		caller     string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"no caller", "", CreateReviewRequest{CourseID: "course-10", Rating: 5}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown caller", "S9", CreateReviewRequest{CourseID: "course-10", Rating: 5}, http.StatusUnauthorized, "CALLER_NOT_FOUND"},
		{"unknown course", "S1", CreateReviewRequest{CourseID: "course-99", Rating: 5}, http.StatusNotFound, "COURSE_NOT_FOUND"},
		{"rating too high", "S1", CreateReviewRequest{CourseID: "course-10", Rating: 6}, http.StatusBadRequest, "INVALID_RATING"},
		{"rating zero", "S1", CreateReviewRequest{CourseID: "course-10", Rating: 0}, http.StatusBadRequest, "INVALID_RATING"},
		{"missing course", "S1", CreateReviewRequest{Rating: 4}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown field", "S1", `{"course_id":"course-10","rating":4,"stars":4}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed", "S1", `{"course_id":`, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec, env := s.do(t, http.MethodPost, "/api/reviews", tt.caller, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestGetReview(t *testing.T) {
	s := newTestServer(t)
	created := s.create(t, "S1", CreateReviewRequest{CourseID: "course-10", Rating: 4})

	rec, env := s.do(t, http.MethodGet, "/api/reviews/"+created.ID, "S2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.ReviewResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "", got.ReviewText)
	assert.Equal(t, 4, got.Rating)
}

func TestGetReview_BadAndMissingID(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/reviews/not-a-uuid", "S1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", env.Error.Code)

	rec, env = s.do(t, http.MethodGet, "/api/reviews/8f14e45f-ceea-467f-a0e6-3e4c2b1d5a7e", "S1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "REVIEW_NOT_FOUND", env.Error.Code)
}

func TestListByCourseAndStudent(t *testing.T) {
	s := newTestServer(t)
	first := s.create(t, "S1", CreateReviewRequest{CourseID: "course-10", Rating: 4})
	second := s.create(t, "S2", CreateReviewRequest{CourseID: "course-10", Rating: 5})

	rec, env := s.do(t, http.MethodGet, "/api/reviews/course/course-10", "S1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var byCourse []domain.ReviewResponse
	require.NoError(t, json.Unmarshal(env.Data, &byCourse))
	require.Len(t, byCourse, 2)
	assert.Equal(t, first.ID, byCourse[0].ID)
	assert.Equal(t, second.ID, byCourse[1].ID)

	rec, env = s.do(t, http.MethodGet, "/api/reviews/student/S2", "S1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var byStudent []domain.ReviewResponse
	require.NoError(t, json.Unmarshal(env.Data, &byStudent))
	require.Len(t, byStudent, 1)
	assert.Equal(t, second.ID, byStudent[0].ID)
}

func TestListByCourse_EmptyIsArray(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/reviews/course/course-10", "S1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestUpdateReview(t *testing.T) {
	s := newTestServer(t)
	created := s.create(t, "S1", CreateReviewRequest{CourseID: "course-10", ReviewText: "ok", Rating: 3})

	rec, env := s.do(t, http.MethodPut, "/api/reviews/"+created.ID, "S1", UpdateReviewRequest{ReviewText: "better", Rating: 4})
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.ReviewResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "better", got.ReviewText)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
}

func TestUpdateReview_NotOwner(t *testing.T) {
	s := newTestServer(t)
	created := s.create(t, "S1", CreateReviewRequest{CourseID: "course-10", Rating: 3})

	rec, env := s.do(t, http.MethodPut, "/api/reviews/"+created.ID, "S2", UpdateReviewRequest{Rating: 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "UNAUTHORIZED_REVIEW_ACCESS", env.Error.Code)
}

func TestUpdateReview_InvalidRating(t *testing.T) {
	s := newTestServer(t)
	created := s.create(t, "S1", CreateReviewRequest{CourseID: "course-10", Rating: 3})

	rec, env := s.do(t, http.MethodPut, "/api/reviews/"+created.ID, "S1", UpdateReviewRequest{Rating: 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_RATING", env.Error.Code)
}

func TestDeleteReview(t *testing.T) {
	s := newTestServer(t)
	created := s.create(t, "S1", CreateReviewRequest{CourseID: "course-10", Rating: 3})

	rec, env := s.do(t, http.MethodDelete, "/api/reviews/"+created.ID, "S1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `true`, string(env.Data))

	rec, env = s.do(t, http.MethodDelete, "/api/reviews/"+created.ID, "S1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "REVIEW_NOT_FOUND", env.Error.Code)
}

func TestAverageRating(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/reviews/course/course-10/average-rating", "S1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `0`, string(env.Data))

	for _, rating := range []int{4, 5, 3} {
		s.create(t, "S1", CreateReviewRequest{CourseID: "course-10", Rating: rating})
	}

	rec, env = s.do(t, http.MethodGet, "/api/reviews/course/course-10/average-rating", "S2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var avg float64
	require.NoError(t, json.Unmarshal(env.Data, &avg))
	assert.InDelta(t, 4.0, avg, 1e-9)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestReviewRoutes_RequireCaller(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/reviews/course/course-10", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}
