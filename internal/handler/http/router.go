package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/B09-Adpro/udehnih-review-rating/internal/service"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/health"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "review-rating"

// RouterConfig carries the edge settings of the HTTP surface.
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	RateLimit      middleware.RateLimitConfig
}

// NewRouter creates a chi router with all review-rating routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	resolve middleware.IdentityResolver,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins}))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	r.Get("/health", healthHandler.PlainHandler())
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	reviewHandler := NewReviewHandler(reviewService, logger)

	r.Route("/api/reviews", func(r chi.Router) {
		r.Use(middleware.Auth(resolve))
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.RateLimit(cfg.RateLimit, logger))

		r.Post("/", reviewHandler.CreateReview)

		// Static prefixes are registered before /{reviewId}.
		r.Get("/course/{courseId}", reviewHandler.ListByCourse)
		r.Get("/course/{courseId}/average-rating", reviewHandler.AverageRating)
		r.Get("/student/{studentId}", reviewHandler.ListByStudent)

		r.Get("/{reviewId}", reviewHandler.GetReview)
		r.Put("/{reviewId}", reviewHandler.UpdateReview)
		r.Delete("/{reviewId}", reviewHandler.DeleteReview)
	})

	return r
}
