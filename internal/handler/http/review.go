package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/B09-Adpro/udehnih-review-rating/internal/service"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/httputil"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/middleware"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review.
// Rating bounds are enforced by the domain so the error code stays INVALID_RATING.
type CreateReviewRequest struct {
	CourseID   string `json:"course_id" validate:"required,max=64"`
	ReviewText string `json:"review_text" validate:"max=5000"`
	Rating     int    `json:"rating"`
	Anonymous  bool   `json:"anonymous"`
}

// UpdateReviewRequest is the JSON request body for updating a review.
type UpdateReviewRequest struct {
	ReviewText string `json:"review_text" validate:"max=5000"`
	Rating     int    `json:"rating"`
}

// --- Handlers ---

// CreateReview handles POST /api/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	resp, err := h.service.CreateReview(r.Context(), middleware.CallerIDFromContext(r.Context()), &service.CreateReviewInput{
		CourseID:   req.CourseID,
		ReviewText: req.ReviewText,
		Rating:     req.Rating,
		Anonymous:  req.Anonymous,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, resp)
}

// GetReview handles GET /api/reviews/{reviewId}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "review id", chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	resp, err := h.service.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, resp)
}

// ListByCourse handles GET /api/reviews/course/{courseId}
func (h *ReviewHandler) ListByCourse(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListByCourse(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, resp)
}

// ListByStudent handles GET /api/reviews/student/{studentId}
func (h *ReviewHandler) ListByStudent(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListByStudent(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, resp)
}

// UpdateReview handles PUT /api/reviews/{reviewId}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "review id", chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	resp, err := h.service.UpdateReview(r.Context(), id, middleware.CallerIDFromContext(r.Context()), &service.UpdateReviewInput{
		ReviewText: req.ReviewText,
		Rating:     req.Rating,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, resp)
}

// DeleteReview handles DELETE /api/reviews/{reviewId}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "review id", chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	deleted, err := h.service.DeleteReview(r.Context(), id, middleware.CallerIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, deleted)
}

// AverageRating handles GET /api/reviews/course/{courseId}/average-rating
func (h *ReviewHandler) AverageRating(w http.ResponseWriter, r *http.Request) {
	avg, err := h.service.AverageRating(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, avg)
}
