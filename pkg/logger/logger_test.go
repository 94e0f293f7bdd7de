package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestNewWithOptions_JSONCarriesService(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions("review-rating", Options{Level: "info", Writer: &buf})
	l.Info("hello")

	out := decodeLine(t, &buf)
	assert.Equal(t, "review-rating", out["service"])
	assert.Equal(t, "hello", out["msg"])
}

func TestNewWithOptions_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions("review-rating", Options{Format: "TEXT", Writer: &buf})
	l.Info("hello")

	assert.Contains(t, buf.String(), "service=review-rating")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewWithOptions_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions("svc", Options{Level: "warn", Writer: &buf})
	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Equal(t, "kept", decodeLine(t, &buf)["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestWithContext(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func(t *testing.T) context.Context
		present map[string]string
		absent  []string
	}{
		{
			name:   "empty context adds nothing",
			ctx:    func(*testing.T) context.Context { return context.Background() },
			absent: []string{"correlation_id", "caller_id", "trace_id", "span_id"},
		},
		{
			name: "correlation and caller",
			ctx: func(*testing.T) context.Context {
				return WithCallerID(WithCorrelationID(context.Background(), "corr-1"), "S1")
			},
			present: map[string]string{"correlation_id": "corr-1", "caller_id": "S1"},
			absent:  []string{"trace_id"},
		},
		{
			name: "span fields",
			ctx:  spanContext,
			present: map[string]string{
				"trace_id": "4bf92f3577b34da6a3ce929d0e0e4736",
				"span_id":  "00f067aa0ba902b7",
			},
			absent: []string{"caller_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			WithContext(tt.ctx(t), NewWithOptions("svc", Options{Writer: &buf})).Info("line")

			out := decodeLine(t, &buf)
			for k, v := range tt.present {
				assert.Equal(t, v, out[k], k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, out, k)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	l := NewWithOptions("svc", Options{Writer: &bytes.Buffer{}})
	assert.Same(t, l, FromContext(NewContext(context.Background(), l)))
}

func TestCorrelationIDFromContext(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
	assert.Equal(t, "c-9", CorrelationIDFromContext(WithCorrelationID(context.Background(), "c-9")))
}
