package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/B09-Adpro/udehnih-review-rating/internal/domain"
	apperrors "github.com/B09-Adpro/udehnih-review-rating/pkg/errors"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/httpclient"
)

// StudentClient looks up students in the auth service.
type StudentClient struct {
	lookup
}

// NewStudentClient creates a client for the auth service at baseURL.
func NewStudentClient(doer httpclient.Doer, baseURL string, timeout time.Duration) *StudentClient {
	return &StudentClient{lookup: newLookup(doer, baseURL, timeout, "auth")}
}

// GetStudent returns the user record of a student. A record without a name
// is treated as missing.
func (c *StudentClient) GetStudent(ctx context.Context, studentID string) (*domain.Student, error) {
	var student domain.Student
	if err := c.get(ctx, "/api/users/"+escape(studentID), &student); err != nil {
		return nil, err
	}
	if strings.TrimSpace(student.Name) == "" {
		return nil, fmt.Errorf("student %s has no name: %w", studentID, apperrors.ErrNotFound)
	}
	if student.StudentID == "" {
		student.StudentID = studentID
	}
	return &student, nil
}
