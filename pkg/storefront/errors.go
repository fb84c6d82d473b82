package storefront

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error kinds. Every error returned by a Client call matches one of these
// with errors.Is, except context cancellation which is returned as is.
var (
	ErrAuth       = errors.New("storefront: authentication required")
	ErrNetwork    = errors.New("storefront: network error")
	ErrValidation = errors.New("storefront: validation failed")
	ErrNotFound   = errors.New("storefront: not found")
	ErrConflict   = errors.New("storefront: conflict")
	ErrServer     = errors.New("storefront: server error")
)

// Reasons carried by AuthError.
const (
	ReasonNoRefreshToken = "no_refresh_token"
	ReasonRenewalFailed  = "renewal_failed"
	ReasonRenewalTimeout = "renewal_timeout"
	ReasonReplayRejected = "replay_rejected"
	ReasonNotLoggedIn    = "not_logged_in"
)

// APIError is a non-2xx response from the storefront API.
type APIError struct {
	StatusCode  int
	Code        string
	Description string

	// Fields holds per-field validation messages when the API sends them.
	Fields map[string][]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("storefront: HTTP %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("storefront: HTTP %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// Unwrap maps the status code onto an error kind.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusUnprocessableEntity:
		return ErrValidation
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrAuth
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return ErrConflict
	case e.StatusCode >= 500:
		return ErrServer
	default:
		return nil
	}
}

// NetworkError is a transport failure: no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("storefront: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error { return []error{ErrNetwork, e.Err} }

// AuthError means the session could not be (re)established. Callers usually
// react by sending the user to the login flow.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storefront: auth: %s", e.Reason)
	}
	return fmt.Sprintf("storefront: auth: %s: %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuth}
	}
	return []error{ErrAuth, e.Err}
}

// parseErrorResponse turns a non-2xx response body into an *APIError. The
// API answers with DRF style bodies: {"detail": "..."}, {"error": "..."},
// {"error": {"error": "..."}}, {"code": "...", "message": "..."} or a map of
// field name to messages.
func parseErrorResponse(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Description = fallbackDescription(status, body)
		return apiErr
	}

	if v, ok := raw["code"]; ok {
		apiErr.Code = asString(v)
	}
	for _, key := range []string{"detail", "message", "error_description", "error"} {
		if v, ok := raw[key]; ok {
			if s := asString(v); s != "" {
				apiErr.Description = s
				break
			}
		}
	}

	// Remaining keys that look like field errors
	for key, v := range raw {
		switch key {
		case "code", "detail", "message", "error", "error_description":
			continue
		}
		if msgs := asStrings(v); len(msgs) > 0 {
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[key] = msgs
		}
	}

	if apiErr.Description == "" && len(apiErr.Fields) > 0 {
		apiErr.Description = describeFields(apiErr.Fields)
	}
	if apiErr.Description == "" {
		apiErr.Description = fallbackDescription(status, nil)
	}
	return apiErr
}

// asString accepts a JSON string or an object whose "error" member is one.
func asString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var nested struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(v, &nested); err == nil {
		return nested.Error
	}
	return ""
}

func asStrings(v json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return list
	}
	if s := asString(v); s != "" {
		return []string{s}
	}
	return nil
}

func describeFields(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(fields[k], " "))
	}
	return strings.Join(parts, "; ")
}

func fallbackDescription(status int, body []byte) string {
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(status)
}
