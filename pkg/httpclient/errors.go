package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/B09-Adpro/udehnih-review-rating/pkg/errors"
)

const maxErrorBody = 64 << 10

// upstreamErrorBody covers the two error shapes upstream services answer with:
// the {"error":{code,message}} envelope and a flat {"message":...} body.
type upstreamErrorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// translates it into an AppError. 404 maps to ErrNotFound so callers can tell
// "does not exist" apart from "could not ask"; 503 maps to ErrServiceUnavail;
// any other status is reported as ErrBadGateway.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	message := http.StatusText(resp.StatusCode)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		message = extractMessage(body, message)
	}
	qualified := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "UPSTREAM_NOT_FOUND",
			Message: qualified,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualified)
	default:
		return apperrors.BadGateway(fmt.Sprintf("%s returned status %d: %s", serviceName, resp.StatusCode, message))
	}
}

func extractMessage(body []byte, fallback string) string {
	var parsed upstreamErrorBody
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 256 {
		return s
	}
	return fallback
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
