package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_IssuedTokensAuthenticate(t *testing.T) {
	s := New(t)
	access, refresh := s.IssueTokens("1")

	claims, err := jwtx.ParseUnverified(refresh)
	require.NoError(t, err)
	assert.Equal(t, jwtx.TokenTypeRefresh, claims.TokenType)

	resp := get(t, s.BaseURL()+"/users/me/", access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.ExpireAccessTokens()
	resp = get(t, s.BaseURL()+"/users/me/", access)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, s.BaseURL()+"/users/me/", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_Refresh(t *testing.T) {
	s := New(t)
	_, refresh := s.IssueTokens("1")

	body, _ := json.Marshal(map[string]string{"refresh": refresh})
	resp, err := http.Post(s.BaseURL()+"/users/token/refresh/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Access string `json:"access"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Access)
	assert.Equal(t, 1, s.RefreshCalls())

	me := get(t, s.BaseURL()+"/users/me/", out.Access)
	assert.Equal(t, http.StatusOK, me.StatusCode)

	s.RevokeRefresh(refresh)
	again, err := http.Post(s.BaseURL()+"/users/token/refresh/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer again.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, again.StatusCode)
}

func TestServer_RecordsRequests(t *testing.T) {
	s := New(t)
	get(t, s.BaseURL()+"/products/", "")

	reqs := s.RequestsTo("/products/")
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Empty(t, reqs[0].Authorization)
}

func TestServer_GuestOrder(t *testing.T) {
	s := New(t)
	body := []byte(`{"items":[{"product_id":"1","quantity":2}]}`)

	resp, err := http.Post(s.BaseURL()+"/orders/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, s.Orders(), 1)
}
