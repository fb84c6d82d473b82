package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRenewalTimeout bounds a single renewal call.
const DefaultRenewalTimeout = 15 * time.Second

// RefreshFunc exchanges a refresh token for a new access token. It returns
// the rotated refresh token too when the API issues one.
type RefreshFunc func(ctx context.Context, refresh string) (access, rotated string, err error)

// Renewer coordinates access token renewal. At most one renewal per refresh
// token is in flight; callers arriving meanwhile wait for it and all of them
// get the same outcome.
type Renewer struct {
	sessions *SessionStore
	refresh  RefreshFunc
	timeout  time.Duration
	logger   *slog.Logger
	metrics  Metrics

	group singleflight.Group

	// mu guards flights and keeps it in step with group: a flight is
	// registered, joined and forgotten only while mu is held.
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is one renewal in progress.
type flight struct {
	// teardown is set when a caller outside the guest routes waits on the
	// flight, so a failure must clear the session.
	teardown bool
}

// RenewerConfig configures NewRenewer. Zero values pick defaults.
type RenewerConfig struct {
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics Metrics
}

func NewRenewer(sessions *SessionStore, refresh RefreshFunc, cfg RenewerConfig) *Renewer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRenewalTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	return &Renewer{
		sessions: sessions,
		refresh:  refresh,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		flights:  make(map[string]*flight),
	}
}

// Renew returns an access token to use instead of stale. If the session
// already holds a different token, that one is returned without a network
// call. Otherwise the caller joins, or starts, the renewal for the current
// refresh token.
//
// On failure every waiter gets the same *AuthError. The session is cleared
// unless every waiter declared guest; guest waiters never clear it.
func (r *Renewer) Renew(ctx context.Context, stale string, guest bool) (string, error) {
	tokens := r.sessions.Tokens()
	if tokens.Access != "" && tokens.Access != stale {
		return tokens.Access, nil
	}

	if tokens.Refresh == "" {
		if !guest {
			r.clear(ctx, "")
		}
		return "", &AuthError{Reason: ReasonNoRefreshToken}
	}

	key := tokens.Refresh
	r.mu.Lock()
	f := r.flights[key]
	if f == nil {
		f = &flight{}
		r.flights[key] = f
	}
	if !guest {
		f.teardown = true
	}
	ch := r.group.DoChan(key, func() (any, error) {
		return r.run(key, f)
	})
	r.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			if !guest {
				// Compare-and-clear, so repeating the flight's clear is harmless.
				r.clear(ctx, key)
			}
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("storefront: waiting for renewal: %w", ctx.Err())
	}
}

// run performs one renewal. It is detached from every caller's context and
// bounded by the renewal timeout.
func (r *Renewer) run(refresh string, f *flight) (string, error) {
	defer r.finish(refresh, f)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	access, rotated, err := r.refresh(ctx, refresh)
	if err == nil && access == "" {
		err = errors.New("renewal response carried no access token")
	}

	if err != nil {
		r.mu.Lock()
		teardown := f.teardown
		r.mu.Unlock()

		reason, outcome := ReasonRenewalFailed, RenewalFailure
		if errors.Is(err, context.DeadlineExceeded) {
			reason, outcome = ReasonRenewalTimeout, RenewalTimeout
		}
		r.metrics.ObserveRenewal(outcome, time.Since(start))
		r.logger.Warn("token renewal failed", "reason", reason, "teardown", teardown, "error", err)

		if teardown {
			r.clear(ctx, refresh)
		}
		return "", &AuthError{Reason: reason, Err: err}
	}

	r.metrics.ObserveRenewal(RenewalSuccess, time.Since(start))

	updated, saveErr := r.sessions.updateAccess(context.WithoutCancel(ctx), refresh, access, rotated)
	if saveErr != nil {
		r.logger.Warn("renewed token not persisted", "error", saveErr)
	}
	if !updated {
		// Logged out, or logged in again, while renewing. Never resurrect the
		// old session; hand out whatever is current instead.
		if current := r.sessions.Tokens().Access; current != "" {
			return current, nil
		}
		return "", &AuthError{Reason: ReasonNotLoggedIn}
	}

	r.logger.Debug("token renewed", "duration_ms", time.Since(start).Milliseconds())
	return access, nil
}

// finish retires f once its outcome is settled. Callers arriving later start
// a new flight with a fresh teardown decision.
func (r *Renewer) finish(refresh string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flights[refresh] == f {
		delete(r.flights, refresh)
		r.group.Forget(refresh)
	}
}

func (r *Renewer) clear(ctx context.Context, refresh string) {
	cleared, err := r.sessions.clearIfRefresh(context.WithoutCancel(ctx), refresh)
	if err != nil {
		r.logger.Warn("session clear not persisted", "error", err)
	}
	if cleared {
		r.logger.Info("session cleared after failed renewal")
	}
}
