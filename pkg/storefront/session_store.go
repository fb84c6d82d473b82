package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/storefront/internal/notify"
	"github.com/aussiebroadwan/storefront/pkg/persist"
)

const sessionVersion = 1

// SessionState is a consistent copy of the session.
type SessionState struct {
	User            *User
	Tokens          Tokens
	IsAuthenticated bool

	// Transient UI state, never persisted.
	IsLoading bool
	Err       error
}

// sessionSnapshot is the persisted subset of SessionState.
type sessionSnapshot struct {
	User            *User  `json:"user"`
	Tokens          Tokens `json:"tokens"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

func (s sessionSnapshot) valid() bool {
	return s.IsAuthenticated == (s.Tokens.Access != "" && s.User != nil)
}

// SessionStore is the single owner of the user's identity and credentials.
// Readers never observe a half-updated token pair.
type SessionStore struct {
	mu            sync.RWMutex
	user          *User
	tokens        Tokens
	authenticated bool
	loading       bool
	err           error

	store  persist.Adapter
	logger *slog.Logger
	hub    notify.Hub[SessionState]
}

// NewSessionStore restores the session persisted in store. A snapshot that
// cannot be read, or that is not self-consistent, is discarded.
func NewSessionStore(ctx context.Context, store persist.Adapter, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionStore{store: store, logger: logger.With("store", persist.KeySession)}

	var snap sessionSnapshot
	ok, err := persist.Load(ctx, store, persist.KeySession, sessionVersion, &snap)
	switch {
	case err != nil:
		s.logger.Warn("discarding unreadable session", "error", err)
		s.discard(ctx)
	case ok && !snap.valid():
		s.logger.Warn("discarding inconsistent session")
		s.discard(ctx)
	case ok && snap.IsAuthenticated:
		s.user = snap.User
		s.tokens = snap.Tokens
		s.authenticated = true
	}
	return s
}

func (s *SessionStore) discard(ctx context.Context) {
	if err := s.store.Remove(ctx, persist.KeySession); err != nil {
		s.logger.Warn("session remove failed", "error", err)
	}
}

// Subscribe registers fn to receive the state after every change.
func (s *SessionStore) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// Snapshot returns a copy of the whole state.
func (s *SessionStore) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *SessionStore) stateLocked() SessionState {
	st := SessionState{
		Tokens:          s.tokens,
		IsAuthenticated: s.authenticated,
		IsLoading:       s.loading,
		Err:             s.err,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

// Tokens returns the current credential pair.
func (s *SessionStore) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// SetAuth replaces the identity and credentials and clears any error.
func (s *SessionStore) SetAuth(ctx context.Context, user *User, tokens Tokens) error {
	if user == nil || tokens.Access == "" {
		return fmt.Errorf("%w: a session needs a user and an access token", ErrValidation)
	}
	u := *user

	s.mu.Lock()
	s.user = &u
	s.tokens = tokens
	s.authenticated = true
	s.err = nil
	return s.commitLocked(ctx)
}

// setUser replaces the identity of an authenticated session, keeping its
// tokens. It is a no-op for anonymous sessions.
func (s *SessionStore) setUser(ctx context.Context, user *User) error {
	u := *user

	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return nil
	}
	s.user = &u
	return s.commitLocked(ctx)
}

// ClearAuth resets to the anonymous state.
func (s *SessionStore) ClearAuth(ctx context.Context) error {
	s.mu.Lock()
	s.clearLocked()
	return s.commitLocked(ctx)
}

func (s *SessionStore) clearLocked() {
	s.user = nil
	s.tokens = Tokens{}
	s.authenticated = false
	s.err = nil
}

func (s *SessionStore) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	st := s.stateLocked()
	s.mu.Unlock()
	s.hub.Publish(st)
}

func (s *SessionStore) SetError(err error) {
	s.mu.Lock()
	s.err = err
	st := s.stateLocked()
	s.mu.Unlock()
	s.hub.Publish(st)
}

// updateAccess installs a renewed access token, and a rotated refresh token
// when one was issued, provided the session still holds refresh. It reports
// false when the session changed while the renewal was running.
func (s *SessionStore) updateAccess(ctx context.Context, refresh, access, rotated string) (bool, error) {
	s.mu.Lock()
	if !s.authenticated || s.tokens.Refresh != refresh {
		s.mu.Unlock()
		return false, nil
	}
	s.tokens.Access = access
	if rotated != "" {
		s.tokens.Refresh = rotated
	}
	return true, s.commitLocked(ctx)
}

// clearIfRefresh clears the session only if it still holds refresh, so a
// failed renewal never destroys a session created by a later login.
func (s *SessionStore) clearIfRefresh(ctx context.Context, refresh string) (bool, error) {
	s.mu.Lock()
	if !s.authenticated || s.tokens.Refresh != refresh {
		s.mu.Unlock()
		return false, nil
	}
	s.clearLocked()
	return true, s.commitLocked(ctx)
}

// commitLocked persists the state, unlocks and notifies. s.mu must be held.
func (s *SessionStore) commitLocked(ctx context.Context) error {
	var err error
	if s.authenticated {
		err = persist.Save(ctx, s.store, persist.KeySession, sessionVersion, sessionSnapshot{
			User:            s.user,
			Tokens:          s.tokens,
			IsAuthenticated: true,
		})
	} else {
		err = s.store.Remove(ctx, persist.KeySession)
	}
	if err != nil {
		s.logger.Warn("session write failed", "error", err)
		err = fmt.Errorf("storefront: save session: %w", err)
	}

	st := s.stateLocked()
	s.mu.Unlock()

	s.hub.Publish(st)
	return err
}
