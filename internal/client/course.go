package client

import (
	"context"
	"time"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/httpclient"
)

// CourseClient looks up courses in the course service.
type CourseClient struct {
	lookup
}

// NewCourseClient creates a client for the course service at baseURL.
func NewCourseClient(doer httpclient.Doer, baseURL string, timeout time.Duration) *CourseClient {
	return &CourseClient{lookup: newLookup(doer, baseURL, timeout, "course")}
}

// GetCourse returns the public record of a course.
func (c *CourseClient) GetCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	var course domain.Course
	if err := c.get(ctx, "/api/courses/public/"+escape(courseID), &course); err != nil {
		return nil, err
	}
	if course.ID == "" {
		course.ID = courseID
	}
	return &course, nil
}
