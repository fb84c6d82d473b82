package storefront

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestAttempt describes one try of a logical call. It is a value: every
// retry derives a new attempt with Next instead of flagging shared state.
type RequestAttempt struct {
	// ID is shared by every attempt of the same logical call and sent as
	// X-Request-ID.
	ID string

	// Number starts at 1 for the first try.
	Number int

	// Token is the access token this attempt presents, empty for anonymous
	// calls.
	Token string
}

// newAttempt starts a logical call.
func newAttempt(token string) RequestAttempt {
	return RequestAttempt{ID: newRequestID(), Number: 1, Token: token}
}

// Next returns the following attempt of the same call, carrying token.
func (a RequestAttempt) Next(token string) RequestAttempt {
	return RequestAttempt{ID: a.ID, Number: a.Number + 1, Token: token}
}

// Retried reports whether this attempt is a replay.
func (a RequestAttempt) Retried() bool { return a.Number > 1 }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newRequestID returns a lexicographically sortable request id.
func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}
