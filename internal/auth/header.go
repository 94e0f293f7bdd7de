package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/B09-Adpro/udehnih-review-rating/pkg/middleware"
)

// UserIDHeader carries the caller id in deployments where an upstream gateway
// has already authenticated the request.
const UserIDHeader = "X-User-ID"

// HeaderResolver trusts the caller id set by the gateway. A bearer token on
// the request is still forwarded to the upstream services.
func HeaderResolver() middleware.IdentityResolver {
	return func(r *http.Request) (*middleware.Identity, error) {
		callerID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if callerID == "" {
			return nil, middleware.ErrNoCredentials
		}

		id := &middleware.Identity{CallerID: callerID}
		token, err := middleware.BearerToken(r)
		switch {
		case err == nil:
			id.Token = token
		case errors.Is(err, middleware.ErrNoCredentials):
		default:
			return nil, err
		}
		return id, nil
	}
}
