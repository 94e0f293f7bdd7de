package middleware

import (
	"log/slog"
	"net/http"

	"github.com/B09-Adpro/udehnih-review-rating/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// the correlation id, the authenticated caller, the active span and the
// request line. Handlers read it back with logger.FromContext.
//
// Mount it after RequestLogging, Tracing and Auth.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if callerID := CallerIDFromContext(ctx); callerID != "" {
				ctx = logger.WithCallerID(ctx, callerID)
			}

			l := logger.WithContext(ctx, base).With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, l)))
		})
	}
}
