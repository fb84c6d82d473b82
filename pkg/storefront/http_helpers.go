package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// maxResponseBody caps how much of a response is read into memory.
const maxResponseBody = 8 << 20

// Requester issues calls against the API. The authenticated requester
// attaches the session's access token, renews it on a 401 and replays the
// call once; the public one does neither.
type Requester struct {
	c      *Client
	authed bool
}

// Do sends in as a JSON body (when non-nil) to method p and decodes a 2xx
// response into out (when non-nil). p is relative to the base URL and may
// carry a query string.
func (q *Requester) Do(ctx context.Context, method, p string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("storefront: encode %s %s: %w", method, p, err)
		}
	}

	if !q.authed {
		attempt := newAttempt("")
		ctx = slogx.WithRequestID(slogx.Ensure(ctx, q.c.logger), attempt.ID)
		status, body, err := q.c.send(ctx, method, p, payload, attempt)
		if err != nil {
			return err
		}
		return decodeResponse(status, body, out)
	}

	route, _, _ := strings.Cut(p, "?")
	guest := q.c.guest.Match(method, route)

	token, err := q.c.validToken(ctx, guest)
	if err != nil {
		return err
	}

	attempt := newAttempt(token)
	ctx = slogx.WithRequestID(slogx.Ensure(ctx, q.c.logger), attempt.ID)
	for {
		status, body, err := q.c.send(ctx, method, p, payload, attempt)
		if err != nil {
			return err
		}
		if status != http.StatusUnauthorized {
			return decodeResponse(status, body, out)
		}

		original := parseErrorResponse(status, body)
		if attempt.Retried() {
			return &AuthError{Reason: ReasonReplayRejected, Err: original}
		}

		fresh, err := q.c.renewer.Renew(ctx, attempt.Token, guest)
		if err != nil {
			var authErr *AuthError
			if guest && errors.As(err, &authErr) {
				return original
			}
			return err
		}

		attempt = attempt.Next(fresh)
		q.c.metrics.IncReplay()
		slogx.FromContext(ctx).Debug("replaying after renewal", "attempt", attempt.Number)
	}
}

// validToken returns the access token to present, renewing it first when it
// is a JWT about to expire. Opaque tokens are used as is.
func (c *Client) validToken(ctx context.Context, guest bool) (string, error) {
	token := c.sessions.Tokens().Access
	if token == "" || c.skew <= 0 {
		return token, nil
	}

	claims, err := jwtx.ParseUnverified(token)
	if err != nil || !claims.ExpiresWithin(c.skew, c.now()) {
		return token, nil
	}

	fresh, err := c.renewer.Renew(ctx, token, guest)
	if err != nil {
		if guest {
			// Let the server decide; a 401 takes the usual path.
			return token, nil
		}
		return "", err
	}
	return fresh, nil
}

// send performs one HTTP exchange and returns the status and body.
func (c *Client) send(ctx context.Context, method, p string, payload []byte, a RequestAttempt) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("storefront: %s %s: throttled: %w", method, p, err)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, body)
	if err != nil {
		return 0, nil, fmt.Errorf("storefront: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(slogx.RequestIDHeader, a.ID)
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, fmt.Errorf("storefront: %s %s: %w", method, p, ctxErr)
		}
		c.metrics.ObserveRequest(method, routeLabel(p), 0, time.Since(start))
		return 0, nil, &NetworkError{Op: method + " " + p, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	c.metrics.ObserveRequest(method, routeLabel(p), resp.StatusCode, time.Since(start))
	if err != nil {
		return 0, nil, &NetworkError{Op: method + " " + p, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return resp.StatusCode, data, nil
}

// decodeResponse decodes a 2xx body into out, or turns anything else into
// an *APIError.
func decodeResponse(status int, body []byte, out any) error {
	if status < 200 || status >= 300 {
		return parseErrorResponse(status, body)
	}
	if out == nil || status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("storefront: failed to decode response: %w", err)
	}
	return nil
}

// list decodes either a bare JSON array or a paginated {"results": [...]}
// envelope.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(b, &page); err != nil {
		return err
	}
	*l = page.Results
	return nil
}
