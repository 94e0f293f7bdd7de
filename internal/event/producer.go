package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	pkgkafka "github.com/B09-Adpro/udehnih-review-rating/pkg/kafka"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/logger"
)

// Kafka topics for review lifecycle events.
var (
	TopicReviewCreated = pkgkafka.Topic("review", "created")
	TopicReviewUpdated = pkgkafka.Topic("review", "updated")
	TopicReviewDeleted = pkgkafka.Topic("review", "deleted")
)

// AggregateTypeReview is the aggregate type of every review event.
const AggregateTypeReview = "review"

// SourceReviewService identifies events originating from this service.
const SourceReviewService = "review-rating-service"

// ReviewData is the payload of review.created and review.updated. The
// student id is left out of anonymous reviews.
type ReviewData struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	StudentID  string    `json:"student_id,omitempty"`
	Anonymous  bool      `json:"anonymous"`
	ReviewText string    `json:"review_text"`
	Rating     int       `json:"rating"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReviewDeletedData is the payload of review.deleted.
type ReviewDeletedData struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
}

// Publisher sends an event envelope to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, "review.created", review, reviewData(review))
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, "review.updated", review, reviewData(review))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, "review.deleted", review, ReviewDeletedData{
		ID:       review.ID,
		CourseID: review.CourseID,
	})
}

func (p *Producer) publish(ctx context.Context, topic, eventType string, review *domain.Review, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, review.ID, AggregateTypeReview, SourceReviewService, review.Version, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "review event published",
		slog.String("event_type", eventType),
		slog.String("review_id", review.ID),
	)
	return nil
}

func reviewData(r *domain.Review) ReviewData {
	data := ReviewData{
		ID:         r.ID,
		CourseID:   r.CourseID,
		Anonymous:  r.IsAnonymous(),
		ReviewText: r.ReviewText,
		Rating:     r.Rating,
		UpdatedAt:  r.UpdatedAt,
	}
	if !data.Anonymous {
		data.StudentID = r.StudentID
	}
	return data
}

// NoopProducer drops every event. It is used when Kafka is disabled.
type NoopProducer struct{}

func (NoopProducer) PublishReviewCreated(context.Context, *domain.Review) error { return nil }
func (NoopProducer) PublishReviewUpdated(context.Context, *domain.Review) error { return nil }
func (NoopProducer) PublishReviewDeleted(context.Context, *domain.Review) error { return nil }
