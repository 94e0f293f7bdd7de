package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/B09-Adpro/udehnih-review-rating/pkg/errors"
)

func fakeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		sentinel   error
		wantStatus int
		wantMsg    string
	}{
		{"404 envelope", 404, `{"error":{"code":"NOT_FOUND","message":"course c1 not found"}}`, apperrors.ErrNotFound, 404, "course c1 not found"},
		{"404 flat message", 404, `{"message":"user missing"}`, apperrors.ErrNotFound, 404, "user missing"},
		{"404 empty body", 404, ``, apperrors.ErrNotFound, 404, "Not Found"},
		{"503", 503, `maintenance`, apperrors.ErrServiceUnavail, 503, "maintenance"},
		{"401 from upstream is a gateway failure", 401, `{"message":"token expired"}`, apperrors.ErrBadGateway, 502, "status 401"},
		{"400 from upstream is a gateway failure", 400, `bad`, apperrors.ErrBadGateway, 502, "status 400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(fakeResponse(tt.status, tt.body), "course-service")

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.wantStatus, apperrors.HTTPStatus(err))
			assert.Contains(t, appErr.Message, "course-service")
			assert.Contains(t, appErr.Message, tt.wantMsg)
		})
	}
}

func TestIsSuccess(t *testing.T) {
	assert.True(t, IsSuccess(200))
	assert.True(t, IsSuccess(204))
	assert.False(t, IsSuccess(301))
	assert.False(t, IsSuccess(404))
}
