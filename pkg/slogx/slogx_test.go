package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "storefront", Version: "test", Env: "test", Level: "debug", Output: &buf})
	logger.Debug("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.Equal(t, "storefront", line["service"])
	require.Equal(t, "v", line["k"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("nonsense"))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.Default(), slogx.FromContext(context.Background()))

	l := slogx.Discard()
	require.Equal(t, l, slogx.FromContext(slogx.WithContext(context.Background(), l)))
}

func TestTransportLogsRequest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Level: "debug", Output: &buf})
	client := &http.Client{Transport: slogx.NewTransport(nil, logger)}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/products/", nil)
	require.NoError(t, err)
	req.Header.Set(slogx.RequestIDHeader, "req-1")

	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "http_request", line["msg"])
	require.Equal(t, "req-1", line["req_id"])
	require.Equal(t, "/products/", line["path"])
	require.EqualValues(t, http.StatusTeapot, line["status"])
}

func TestTransportUsesContextLogger(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Level: "debug", Output: &buf})
	client := &http.Client{Transport: slogx.NewTransport(nil, slogx.Discard())}

	ctx := slogx.WithRequestID(slogx.Ensure(context.Background(), logger), "req-2")
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, srv.URL+"/wishlist/remove/7/", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "req-2", line["req_id"])
	require.Equal(t, "DELETE", line["method"])
}

func TestEnsureKeepsExistingLogger(t *testing.T) {
	t.Parallel()

	first := slogx.Discard()
	ctx := slogx.WithContext(context.Background(), first)
	require.Same(t, first, slogx.FromContext(slogx.Ensure(ctx, slog.Default())))
}
