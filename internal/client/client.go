// Package client calls the course and auth services that own the records
// reviews refer to.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/B09-Adpro/udehnih-review-rating/pkg/errors"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/httpclient"
	"github.com/B09-Adpro/udehnih-review-rating/pkg/middleware"
)

const maxBody = 1 << 20

// lookup is the request plumbing shared by the course and student clients.
type lookup struct {
	doer    httpclient.Doer
	baseURL string
	timeout time.Duration
	service string
}

func newLookup(doer httpclient.Doer, baseURL string, timeout time.Duration, service string) lookup {
	return lookup{
		doer:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		service: service,
	}
}

// get fetches baseURL+path and decodes the JSON answer into dst. The inbound
// bearer token, when present, is forwarded. Non-2xx answers are translated by
// httpclient.ParseResponseError, so a missing record wraps apperrors.ErrNotFound.
func (l lookup) get(ctx context.Context, path string, dst any) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", l.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if token := middleware.BearerTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := l.doer.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call %s service: %w", l.service, err)
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		return httpclient.ParseResponseError(resp, l.service)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read %s response: %w", l.service, err)
	}
	if err := decodeBody(body, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", l.service, err)
	}
	return nil
}

// decodeBody accepts both a bare record and one wrapped in {"data": ...}.
func decodeBody(body []byte, dst any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return errEmptyBody
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
		body = envelope.Data
	}
	return json.Unmarshal(body, dst)
}

var errEmptyBody = fmt.Errorf("empty response body: %w", apperrors.ErrNotFound)

func escape(id string) string {
	return url.PathEscape(id)
}
