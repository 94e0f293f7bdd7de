package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type contextKeyType string

const (
	callerIDKey    contextKeyType = "caller_id"
	bearerTokenKey contextKeyType = "bearer_token"
)

// ErrNoCredentials is returned by an IdentityResolver when the request carries
// no identity at all, as opposed to an invalid one.
var ErrNoCredentials = errors.New("no credentials")

// Identity is the caller resolved from an inbound request.
type Identity struct {
	CallerID string
	// Token is the raw bearer token, forwarded on upstream calls. May be empty.
	Token string
}

// IdentityResolver extracts and verifies the caller identity of a request.
type IdentityResolver func(r *http.Request) (*Identity, error)

// Auth resolves the caller identity and injects it into the request context.
// Requests without a resolvable identity are rejected with 401.
func Auth(resolve IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolve(r)
			if err != nil {
				if errors.Is(err, ErrNoCredentials) {
					writeAuthError(w, "missing credentials")
					return
				}
				writeAuthError(w, "invalid or expired token")
				return
			}
			if id == nil || strings.TrimSpace(id.CallerID) == "" {
				writeAuthError(w, "caller identity is empty")
				return
			}

			ctx := WithCallerID(r.Context(), id.CallerID)
			if id.Token != "" {
				ctx = WithBearerToken(ctx, id.Token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoCredentials
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// WithCallerID returns a copy of ctx carrying the authenticated caller id.
func WithCallerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerIDKey, id)
}

// CallerIDFromContext extracts the caller ID from the request context.
func CallerIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(callerIDKey).(string); ok {
		return id
	}
	return ""
}

// WithBearerToken returns a copy of ctx carrying the inbound bearer token.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey, token)
}

// BearerTokenFromContext returns the inbound bearer token, if any.
func BearerTokenFromContext(ctx context.Context) string {
	if tok, ok := ctx.Value(bearerTokenKey).(string); ok {
		return tok
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
