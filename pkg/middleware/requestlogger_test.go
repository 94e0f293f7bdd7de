package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/B09-Adpro/udehnih-review-rating/pkg/logger"
)

// serveLogged runs one request through RequestLogger and returns the single
// line the handler logged.
func serveLogged(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	base := logger.NewWithOptions("review-rating", logger.Options{Writer: &buf})

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).InfoContext(r.Context(), "handled")
		w.WriteHeader(http.StatusNoContent)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestRequestLogger_RequestLine(t *testing.T) {
	out := serveLogged(t, httptest.NewRequest(http.MethodDelete, "/api/reviews/r-1", nil))

	assert.Equal(t, "handled", out["msg"])
	assert.Equal(t, http.MethodDelete, out["method"])
	assert.Equal(t, "/api/reviews/r-1", out["path"])
	assert.Equal(t, "review-rating", out["service"])
}

func TestRequestLogger_ContextFields(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = logger.WithCorrelationID(ctx, "corr-7")
	ctx = WithCallerID(ctx, "student-from-auth")

	out := serveLogged(t, httptest.NewRequest(http.MethodGet, "/api/reviews/course/c1", nil).WithContext(ctx))

	assert.Equal(t, "corr-7", out["correlation_id"])
	assert.Equal(t, "student-from-auth", out["caller_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", out["span_id"])
}

func TestRequestLogger_CallerOnlyFromAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/reviews/course/c1", nil)
	req.Header.Set("X-User-ID", "spoofed")

	out := serveLogged(t, req)

	assert.NotContains(t, out, "caller_id")
	assert.NotContains(t, out, "correlation_id")
}
