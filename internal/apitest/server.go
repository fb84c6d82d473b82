// Package apitest is an in-process fake of the storefront API, used by the
// client tests. It issues real HS256 JWTs, remembers which access tokens are
// still accepted and records every request it serves.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Request is what the server saw for one call.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

// User is an account known to the fake.
type User struct {
	ID       string
	Name     string
	Username string
	Email    string
	Password string
}

// Server is the fake API. BaseURL is what a client should be pointed at.
type Server struct {
	*httptest.Server

	secret []byte

	mu           sync.Mutex
	users        map[string]User // by Name
	valid        map[string]bool // accepted access tokens
	revoked      map[string]bool // refresh tokens
	accessTTL    time.Duration
	refreshDelay time.Duration
	refreshFail  bool
	rejectAccess bool
	refreshCalls int
	requests     []Request
	products     []commerce.Product
	wishlists    map[string][]commerce.ID
	orders       []map[string]any
}

// New starts a fake API seeded with user "alice"/"secret" (id 1) and a small
// catalog. It is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)

	s := &Server{
		secret:    []byte(secret),
		users:     map[string]User{},
		valid:     map[string]bool{},
		revoked:   map[string]bool{},
		accessTTL: jwtx.DefaultAccessTokenTTL,
		wishlists: map[string][]commerce.ID{},
		products: []commerce.Product{
			{ID: "1", Title: "Laptop", Price: decimal.NewFromInt(1000), Category: "computers", Stock: 4},
			{ID: "2", Title: "Mouse", Price: decimal.NewFromInt(500), Category: "accessories", Stock: 40},
			{ID: "7", Title: "Headphones", Price: decimal.RequireFromString("79.90"), Category: "audio", Stock: 12},
			{ID: "9", Title: "Keyboard", Price: decimal.RequireFromString("129.00"), Category: "accessories", Stock: 8},
		},
	}
	s.AddUser(User{ID: "1", Name: "alice", Username: "alice", Email: "alice@example.com", Password: "secret"})

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root, including the /api prefix.
func (s *Server) BaseURL() string { return s.URL + "/api" }

func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Name] = u
}

// SetAccessTTL changes the lifetime of access tokens minted from now on.
func (s *Server) SetAccessTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTTL = d
}

// SetRefreshDelay makes the refresh endpoint wait before answering.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// SetRefreshFailure makes the refresh endpoint reject every token.
func (s *Server) SetRefreshFailure(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFail = fail
}

// SetRejectAccess makes every authenticated endpoint answer 401, even for
// freshly renewed tokens.
func (s *Server) SetRejectAccess(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectAccess = reject
}

// RevokeRefresh blacklists a refresh token.
func (s *Server) RevokeRefresh(refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[refresh] = true
}

// RefreshCalls is the number of refresh requests received.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// ExpireAccessTokens makes every access token issued so far answer 401, as
// if they had all expired.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.valid)
}

// Requests returns the recorded requests, oldest first.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// RequestsTo returns the recorded requests whose path starts with prefix
// (relative to /api).
func (s *Server) RequestsTo(prefix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if strings.HasPrefix(r.Path, "/api"+prefix) {
			out = append(out, r)
		}
	}
	return out
}

// WishlistOf returns the server-side wishlist of a user id.
func (s *Server) WishlistOf(userID string) []commerce.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.wishlists[userID])
}

// SetWishlist seeds the server-side wishlist of a user id.
func (s *Server) SetWishlist(userID string, ids ...commerce.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlists[userID] = slices.Clone(ids)
}

// Orders returns the order payloads received.
func (s *Server) Orders() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.orders)
}

// IssueTokens mints an access/refresh pair for a user id, as login would.
func (s *Server) IssueTokens(userID string) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userID)
}

func (s *Server) issueLocked(userID string) (string, string) {
	var u User
	for _, candidate := range s.users {
		if candidate.ID == userID {
			u = candidate
		}
	}
	now := time.Now()

	access, err := jwtx.SignHS256(jwtx.NewClaims(jwtx.TokenTypeAccess, userID, u.Username, u.Email, s.accessTTL, now), s.secret)
	if err != nil {
		panic(err)
	}
	refresh, err := jwtx.SignHS256(jwtx.NewClaims(jwtx.TokenTypeRefresh, userID, u.Username, u.Email, jwtx.DefaultRefreshTokenTTL, now), s.secret)
	if err != nil {
		panic(err)
	}
	s.valid[access] = true
	return access, refresh
}

func (s *Server) mintAccessLocked(claims *jwtx.Claims) string {
	access, err := jwtx.SignHS256(jwtx.NewClaims(jwtx.TokenTypeAccess, string(claims.UserID), claims.Username, claims.Email, s.accessTTL, time.Now()), s.secret)
	if err != nil {
		panic(err)
	}
	s.valid[access] = true
	return access
}

// ============================================================================
// HTTP plumbing
// ============================================================================

type ctxKey struct{}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the bearer token. With optional set, requests
// without an Authorization header pass through anonymously.
func (s *Server) authenticate(optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" && optional {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(authz, "Bearer ")
			if !ok {
				writeTokenError(w, "Authentication credentials were not provided.")
				return
			}

			claims, err := jwtx.VerifyHS256(raw, s.secret)
			if err != nil || claims.ValidateTokenType(jwtx.TokenTypeAccess) != nil {
				writeTokenError(w, "Given token not valid for any token type")
				return
			}

			s.mu.Lock()
			accepted := s.valid[raw] && !s.rejectAccess
			s.mu.Unlock()
			if !accepted {
				writeTokenError(w, "Token is invalid or expired")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, string(claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeTokenError(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"detail": detail,
		"code":   "token_not_valid",
	})
}
