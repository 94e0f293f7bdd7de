package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/database"
)

const reviewsTable = "reviews"

var reviewColumns = []string{
	"id", "course_id", "student_id", "review_text", "rating", "created_at", "updated_at", "version",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	query, args, err := psql.Insert(reviewsTable).
		Columns(reviewColumns...).
		Values(
			review.ID,
			review.CourseID,
			review.StudentID,
			review.ReviewText,
			review.Rating,
			review.CreatedAt,
			review.UpdatedAt,
			review.Version,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert review: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by its identifier.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	query, args, err := psql.Select(reviewColumns...).
		From(reviewsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get review: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "GetReview", query)
	defer func() { end(err) }()

	review, err := scanReview(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return review, nil
}

// ListByCourse returns the reviews of a course in insertion order.
func (r *ReviewRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Review, error) {
	return r.list(ctx, "ListReviewsByCourse", sq.Eq{"course_id": courseID})
}

// ListByStudent returns the reviews written under a student id in insertion order.
func (r *ReviewRepository) ListByStudent(ctx context.Context, studentID string) ([]domain.Review, error) {
	return r.list(ctx, "ListReviewsByStudent", sq.Eq{"student_id": studentID})
}

func (r *ReviewRepository) list(ctx context.Context, op string, where sq.Eq) (_ []domain.Review, err error) {
	query, args, err := psql.Select(reviewColumns...).
		From(reviewsTable).
		Where(where).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list reviews: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

// Update writes the mutable fields when the stored version still matches.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review, expectedVersion int) (err error) {
	query, args, err := psql.Update(reviewsTable).
		Set("review_text", review.ReviewText).
		Set("rating", review.Rating).
		Set("updated_at", review.UpdatedAt).
		Set("version", expectedVersion+1).
		Where(sq.Eq{"id": review.ID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update review: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "UpdateReview", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, review.ID)
	}

	review.Version = expectedVersion + 1
	return nil
}

// Delete removes the review when the stored version still matches.
func (r *ReviewRepository) Delete(ctx context.Context, id string, expectedVersion int) (err error) {
	query, args, err := psql.Delete(reviewsTable).
		Where(sq.Eq{"id": id, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete review: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "DeleteReview", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict tells a vanished row from one whose version moved on.
func (r *ReviewRepository) missOrConflict(ctx context.Context, id string) error {
	query, args, err := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From(reviewsTable).
		Where(sq.Eq{"id": id}).
		Suffix(")").
		ToSql()
	if err != nil {
		return fmt.Errorf("build review exists: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return fmt.Errorf("check review exists: %w", err)
	}
	if !exists {
		return domain.ErrReviewNotFound
	}
	return domain.ErrVersionConflict
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	if err := row.Scan(
		&rv.ID,
		&rv.CourseID,
		&rv.StudentID,
		&rv.ReviewText,
		&rv.Rating,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&rv.Version,
	); err != nil {
		return nil, err
	}
	return &rv, nil
}
