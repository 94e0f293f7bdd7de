package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/database"
)

const (
	reviewKeyPrefix  = "review:"
	courseKeyPrefix  = "reviews:course:"
	studentKeyPrefix = "reviews:student:"
	seqKey           = "reviews:seq"
)

// maxTxAttempts bounds the WATCH retries caused by writes to unrelated fields.
const maxTxAttempts = 3

// record is the JSON document stored under review:<id>.
type record struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	StudentID  string    `json:"student_id"`
	ReviewText string    `json:"review_text"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int       `json:"version"`
	Seq        int64     `json:"seq"`
}

func toRecord(r *domain.Review, seq int64) record {
	return record{
		ID:         r.ID,
		CourseID:   r.CourseID,
		StudentID:  r.StudentID,
		ReviewText: r.ReviewText,
		Rating:     r.Rating,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Version:    r.Version,
		Seq:        seq,
	}
}

func (rec record) review() domain.Review {
	return domain.Review{
		ID:         rec.ID,
		CourseID:   rec.CourseID,
		StudentID:  rec.StudentID,
		ReviewText: rec.ReviewText,
		Rating:     rec.Rating,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		Version:    rec.Version,
	}
}

// ReviewRepository implements repository.ReviewRepository on Redis. Each
// review is a JSON document; per-course and per-student sorted sets scored by
// a global sequence keep insertion order. Versioned writes run under WATCH.
type ReviewRepository struct {
	client *redis.Client
}

// NewReviewRepository creates a new Redis-backed review repository.
func NewReviewRepository(client *redis.Client) *ReviewRepository {
	return &ReviewRepository{client: client}
}

// Create stores a new review and indexes it by course and student.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceOp(ctx, database.SystemRedis, "CreateReview", "SET review + ZADD indexes")
	defer func() { end(err) }()

	seq, err := r.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return fmt.Errorf("redis incr review seq: %w", err)
	}

	data, err := json.Marshal(toRecord(review, seq))
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reviewKeyPrefix+review.ID, data, 0)
		pipe.ZAdd(ctx, courseKeyPrefix+review.CourseID, redis.Z{Score: float64(seq), Member: review.ID})
		pipe.ZAdd(ctx, studentKeyPrefix+review.StudentID, redis.Z{Score: float64(seq), Member: review.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by its identifier.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	ctx, end := database.TraceOp(ctx, database.SystemRedis, "GetReview", "GET review")
	defer func() { end(err) }()

	rec, err := getRecord(ctx, r.client, id)
	if err != nil {
		return nil, err
	}
	rv := rec.review()
	return &rv, nil
}

// ListByCourse returns the reviews of a course in insertion order.
func (r *ReviewRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Review, error) {
	return r.list(ctx, "ListReviewsByCourse", courseKeyPrefix+courseID)
}

// ListByStudent returns the reviews written under a student id in insertion order.
func (r *ReviewRepository) ListByStudent(ctx context.Context, studentID string) ([]domain.Review, error) {
	return r.list(ctx, "ListReviewsByStudent", studentKeyPrefix+studentID)
}

func (r *ReviewRepository) list(ctx context.Context, op, indexKey string) (_ []domain.Review, err error) {
	ctx, end := database.TraceOp(ctx, database.SystemRedis, op, "ZRANGE index + MGET reviews")
	defer func() { end(err) }()

	ids, err := r.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange %s: %w", indexKey, err)
	}

	reviews := []domain.Review{}
	if len(ids) == 0 {
		return reviews, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = reviewKeyPrefix + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget reviews: %w", err)
	}

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Removed between ZRANGE and MGET.
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal review: %w", err)
		}
		reviews = append(reviews, rec.review())
	}
	return reviews, nil
}

// Update writes the mutable fields when the stored version still matches.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review, expectedVersion int) (err error) {
	ctx, end := database.TraceOp(ctx, database.SystemRedis, "UpdateReview", "WATCH review + SET")
	defer func() { end(err) }()

	key := reviewKeyPrefix + review.ID
	err = r.watch(ctx, key, func(tx *redis.Tx) error {
		rec, err := getRecord(ctx, tx, review.ID)
		if err != nil {
			return err
		}
		if rec.Version != expectedVersion {
			return domain.ErrVersionConflict
		}

		rec.ReviewText = review.ReviewText
		rec.Rating = review.Rating
		rec.UpdatedAt = review.UpdatedAt
		rec.Version = expectedVersion + 1

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal review: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	})
	if err != nil {
		return err
	}

	review.Version = expectedVersion + 1
	return nil
}

// Delete removes the review and its index entries when the stored version
// still matches.
func (r *ReviewRepository) Delete(ctx context.Context, id string, expectedVersion int) (err error) {
	ctx, end := database.TraceOp(ctx, database.SystemRedis, "DeleteReview", "WATCH review + DEL")
	defer func() { end(err) }()

	key := reviewKeyPrefix + id
	return r.watch(ctx, key, func(tx *redis.Tx) error {
		rec, err := getRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec.Version != expectedVersion {
			return domain.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, courseKeyPrefix+rec.CourseID, id)
			pipe.ZRem(ctx, studentKeyPrefix+rec.StudentID, id)
			return nil
		})
		return err
	})
}

// watch runs fn under WATCH key. An aborted EXEC means another writer touched
// the key; fn is retried so it can re-read the version and report a conflict.
func (r *ReviewRepository) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, domain.ErrReviewNotFound) && !errors.Is(err, domain.ErrVersionConflict) {
			return fmt.Errorf("redis watch %s: %w", key, err)
		}
		return err
	}
	return domain.ErrVersionConflict
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRecord(ctx context.Context, c stringGetter, id string) (*record, error) {
	data, err := c.Get(ctx, reviewKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("redis get review: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal review: %w", err)
	}
	return &rec, nil
}
