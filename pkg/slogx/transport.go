package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestIDHeader carries the per-call request id.
const RequestIDHeader = "X-Request-ID"

// Transport is an http.RoundTripper that logs every outbound call. The
// logger is taken from the request context when present, otherwise Logger
// tagged with the X-Request-ID header.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	logger, ok := r.Context().Value(ctxKey{}).(*slog.Logger)
	if !ok {
		logger = t.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger = logger.With("req_id", r.Header.Get(RequestIDHeader))
	}
	logger = logger.With("method", r.Method, "path", r.URL.Path)

	resp, err := t.Base.RoundTrip(r)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	logger.Debug("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
