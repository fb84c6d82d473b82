package storefront

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/internal/apitest"
	"github.com/aussiebroadwan/storefront/pkg/persist"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func newSessions(t *testing.T) (*SessionStore, *persist.Memory) {
	t.Helper()
	mem := persist.NewMemory()
	return NewSessionStore(context.Background(), mem, slogx.Discard()), mem
}

// newTestClient returns a client talking to a fresh fake API.
func newTestClient(t *testing.T, opts ...Option) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	sessions, _ := newSessions(t)
	opts = append([]Option{WithLogger(slogx.Discard())}, opts...)
	return NewClient(srv.BaseURL(), sessions, opts...), srv
}

// loggedIn returns a client whose session holds a token pair for alice.
func loggedIn(t *testing.T, opts ...Option) (*Client, *apitest.Server) {
	t.Helper()
	c, srv := newTestClient(t, opts...)
	_, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	return c, srv
}

type recordingMetrics struct {
	mu       sync.Mutex
	requests int
	renewals []string
	replays  int
}

func (m *recordingMetrics) ObserveRequest(string, string, int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
}

func (m *recordingMetrics) ObserveRenewal(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renewals = append(m.renewals, outcome)
}

func (m *recordingMetrics) IncReplay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replays++
}
