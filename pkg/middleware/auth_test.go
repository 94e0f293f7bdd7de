package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bearerResolver(r *http.Request) (*Identity, error) {
	tok, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	if tok != "good-token" {
		return nil, errors.New("bad token")
	}
	return &Identity{CallerID: "student-1", Token: tok}, nil
}

func TestAuth_ValidToken_InjectsIdentity(t *testing.T) {
	var gotCaller, gotToken string
	handler := Auth(bearerResolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller = CallerIDFromContext(r.Context())
		gotToken = BearerTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/reviews", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-1", gotCaller)
	assert.Equal(t, "good-token", gotToken)
}

func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"missing header", "", "missing credentials"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "invalid or expired token"},
		{"empty bearer", "Bearer ", "invalid or expired token"},
		{"bad token", "Bearer nope", "invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := Auth(bearerResolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/reviews", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
		})
	}
}

func TestAuth_EmptyCallerID_Rejected(t *testing.T) {
	handler := Auth(func(r *http.Request) (*Identity, error) {
		return &Identity{CallerID: "  "}, nil
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenFromContext_Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerTokenFromContext(req.Context()))
	assert.Empty(t, CallerIDFromContext(req.Context()))
}
