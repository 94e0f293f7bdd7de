package domain

import "time"

// AnonymousStudentID is stored in place of the author for anonymous reviews.
const AnonymousStudentID = "anonymous"

// AnonymousName is the display name shown for anonymous reviews.
const AnonymousName = "Anonymous"

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a student's rating and optional text feedback on a course.
type Review struct {
	ID         string
	CourseID   string
	StudentID  string
	ReviewText string
	Rating     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// Version starts at 1 and is bumped by every successful update. Stores
	// reject writes whose expected version no longer matches.
	Version int
}

// IsAnonymous reports whether the author identity is withheld.
func (r *Review) IsAnonymous() bool {
	return r.StudentID == AnonymousStudentID
}

// Course is the subset of the course service record the reviews need.
type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Student is the subset of the auth service user record the reviews need.
type Student struct {
	StudentID string `json:"studentId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// ReviewResponse is a review enriched with course and student names. It is
// assembled on every read and never stored.
type ReviewResponse struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	CourseName  string    `json:"course_name"`
	StudentID   string    `json:"student_id,omitempty"`
	StudentName string    `json:"student_name"`
	ReviewText  string    `json:"review_text"`
	Rating      int       `json:"rating"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Anonymous   bool      `json:"anonymous"`
}

// AverageRating is the mean rating of a course.
type AverageRating struct {
	CourseID      string  `json:"course_id"`
	AverageRating float64 `json:"average_rating"`
}
