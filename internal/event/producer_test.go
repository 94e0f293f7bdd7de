package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	pkgkafka "github.com/B09-Adpro/udehnih-review-rating/pkg/kafka"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, evt *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: evt})
	return nil
}

func newProducer(pub Publisher) *Producer {
	return NewProducer(pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func review(studentID string) *domain.Review {
	return &domain.Review{
		ID: "r-1", CourseID: "course-10", StudentID: studentID,
		ReviewText: "Great!", Rating: 5,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(), Version: 2,
	}
}

func TestPublishReviewCreated(t *testing.T) {
	pub := &fakePublisher{}
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	require.NoError(t, newProducer(pub).PublishReviewCreated(ctx, review("S1")))
	require.Len(t, pub.sent, 1)

	got := pub.sent[0]
	assert.Equal(t, "udehnih.review.created", got.topic)
	assert.Equal(t, "review.created", got.event.EventType)
	assert.Equal(t, "r-1", got.event.AggregateID)
	assert.Equal(t, AggregateTypeReview, got.event.AggregateType)
	assert.Equal(t, 2, got.event.Version)
	assert.Equal(t, "corr-1", got.event.CorrelationID)

	var data ReviewData
	require.NoError(t, got.event.UnmarshalData(&data))
	assert.Equal(t, "S1", data.StudentID)
	assert.False(t, data.Anonymous)
	assert.Equal(t, 5, data.Rating)
}

func TestPublishReviewUpdated_AnonymousHidesStudent(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, newProducer(pub).PublishReviewUpdated(context.Background(), review(domain.AnonymousStudentID)))

	var data ReviewData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Empty(t, data.StudentID)
	assert.True(t, data.Anonymous)
	assert.Equal(t, TopicReviewUpdated, pub.sent[0].topic)
}

func TestPublishReviewDeleted(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, newProducer(pub).PublishReviewDeleted(context.Background(), review("S1")))

	var data ReviewDeletedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, ReviewDeletedData{ID: "r-1", CourseID: "course-10"}, data)
}

func TestPublish_Error(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	err := newProducer(pub).PublishReviewDeleted(context.Background(), review("S1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish review.deleted event")
}
