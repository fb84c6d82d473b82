package storefront

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

// Keeper renews the access token in the background shortly before it
// expires, so interactive calls rarely pay for a renewal.
type Keeper struct {
	Client   *Client
	Logger   *slog.Logger
	Interval time.Duration

	// Lead is how long before expiry a token is renewed.
	Lead time.Duration

	// Internal channels for lifecycle management
	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewKeeper creates a keeper checking every interval. If interval is 0 or
// negative, defaults to 1 minute.
func NewKeeper(client *Client, logger *slog.Logger, interval time.Duration) *Keeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Keeper{
		Client:   client,
		Logger:   logger,
		Interval: interval,
		Lead:     interval + DefaultExpirySkew,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down. A keeper
// runs at most once; Start after Stop does nothing.
func (k *Keeper) Start() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.started || k.stopped {
		return
	}
	k.started = true

	go k.run()
	k.Logger.Info("session keeper started", "interval", k.Interval)
}

// Stop shuts down the worker and waits for an in-progress check to finish.
// Stopping a keeper that never started, or stopping twice, is a no-op.
func (k *Keeper) Stop() {
	k.mu.Lock()
	running := k.started && !k.stopped
	k.stopped = true
	k.mu.Unlock()
	if !running {
		return
	}

	close(k.stopCh)
	<-k.doneCh
	k.Logger.Info("session keeper stopped")
}

func (k *Keeper) run() {
	defer close(k.doneCh)

	ticker := time.NewTicker(k.Interval)
	defer ticker.Stop()

	k.check()

	for {
		select {
		case <-ticker.C:
			k.check()
		case <-k.stopCh:
			return
		}
	}
}

// check renews the access token when it expires within Lead. Opaque tokens
// and anonymous sessions are left alone.
func (k *Keeper) check() {
	ctx, cancel := context.WithTimeout(context.Background(), k.Interval)
	defer cancel()

	access := k.Client.sessions.Tokens().Access
	if access == "" {
		return
	}
	claims, err := jwtx.ParseUnverified(access)
	if err != nil || !claims.ExpiresWithin(k.Lead, k.Client.now()) {
		return
	}

	if _, err := k.Client.renewer.Renew(ctx, access, false); err != nil {
		k.Logger.Warn("background renewal failed", "error", err)
		return
	}
	k.Logger.Debug("background renewal completed")
}
