// Package auth resolves the caller identity of inbound requests.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/B09-Adpro/udehnih-review-rating/pkg/middleware"
)

// Claims are the access token claims issued by the auth service. The caller
// is the user_id claim when present, otherwise the subject.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"user_id,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// CallerID returns the identity carried by the claims.
func (c *Claims) CallerID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// JWTVerifier validates HS256 access tokens.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a verifier. When secretIsBase64 is set the secret is
// decoded first, matching auth services that keep the signing key encoded.
func NewJWTVerifier(secret string, secretIsBase64 bool, issuer string) (*JWTVerifier, error) {
	key := []byte(secret)
	if secretIsBase64 {
		decoded, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("decode jwt secret: %w", err)
		}
		key = decoded
	}
	if len(key) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWTVerifier{secret: key, issuer: issuer}, nil
}

// Verify parses and validates tokenString.
func (v *JWTVerifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token is empty")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.CallerID()) == "" {
		return nil, errors.New("token carries no subject")
	}
	return claims, nil
}

// Resolver returns a middleware.IdentityResolver backed by the verifier.
func (v *JWTVerifier) Resolver() middleware.IdentityResolver {
	return func(r *http.Request) (*middleware.Identity, error) {
		token, err := middleware.BearerToken(r)
		if err != nil {
			return nil, err
		}
		claims, err := v.Verify(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Identity{CallerID: claims.CallerID(), Token: token}, nil
	}
}
