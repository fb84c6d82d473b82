package storefront

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL points at a local development API.
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultRequestTimeout bounds every single HTTP exchange.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultExpirySkew is how close to its exp claim an access token may get
	// before the client renews it proactively.
	DefaultExpirySkew = 30 * time.Second
)

// Client talks to the storefront API on behalf of one visitor. It hands out
// two requesters: Authed, which carries the session credentials and renews
// them on a 401, and Public, which never sends credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   *SessionStore
	renewer    *Renewer
	guest      *GuestRoutes
	limiter    *rate.Limiter
	metrics    Metrics
	logger     *slog.Logger
	skew       time.Duration
	now        func() time.Time

	authed *Requester
	public *Requester
}

type clientOptions struct {
	httpClient     *http.Client
	logger         *slog.Logger
	metrics        Metrics
	guest          *GuestRoutes
	renewalTimeout time.Duration
	rateLimit      *RateLimitConfig
	skew           time.Duration
	now            func() time.Time
}

// Option configures a Client.
type Option func(*clientOptions)

// WithHTTPClient replaces the default client (10s timeout, logging
// transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

func WithMetrics(m Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithGuestRoutes replaces DefaultGuestRoutes.
func WithGuestRoutes(g *GuestRoutes) Option {
	return func(o *clientOptions) { o.guest = g }
}

func WithRenewalTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.renewalTimeout = d }
}

// WithRateLimit throttles outbound calls. Waiting honours the call context.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(o *clientOptions) { o.rateLimit = &cfg }
}

// WithExpirySkew changes the proactive renewal window. Zero disables
// proactive renewal.
func WithExpirySkew(d time.Duration) Option {
	return func(o *clientOptions) { o.skew = d }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// NewClient creates a client bound to sessions.
func NewClient(baseURL string, sessions *SessionStore, opts ...Option) *Client {
	o := clientOptions{
		logger:  slog.Default(),
		metrics: nopMetrics{},
		guest:   MustGuestRoutes(DefaultGuestRoutes...),
		skew:    DefaultExpirySkew,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{
			Timeout:   DefaultRequestTimeout,
			Transport: slogx.NewTransport(nil, o.logger),
		}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: o.httpClient,
		sessions:   sessions,
		guest:      o.guest,
		metrics:    o.metrics,
		logger:     o.logger,
		skew:       o.skew,
		now:        o.now,
	}
	if o.rateLimit != nil {
		c.limiter = newLimiter(*o.rateLimit)
	}

	c.public = &Requester{c: c}
	c.authed = &Requester{c: c, authed: true}
	c.renewer = NewRenewer(sessions, c.refreshToken, RenewerConfig{
		Timeout: o.renewalTimeout,
		Logger:  o.logger,
		Metrics: o.metrics,
	})
	return c
}

// Authed returns the requester that carries credentials.
func (c *Client) Authed() *Requester { return c.authed }

// Public returns the requester for anonymous endpoints.
func (c *Client) Public() *Requester { return c.public }

// Sessions returns the session store the client is bound to.
func (c *Client) Sessions() *SessionStore { return c.sessions }

// Renewer exposes the coordinator, for Keeper and tests.
func (c *Client) Renewer() *Renewer { return c.renewer }

// refreshToken is the RefreshFunc used by the client's Renewer. It goes
// through the public requester so a rejected refresh never recurses into
// renewal.
func (c *Client) refreshToken(ctx context.Context, refresh string) (string, string, error) {
	var resp refreshResponse
	if err := c.public.Do(ctx, http.MethodPost, "/users/token/refresh/", refreshRequest{Refresh: refresh}, &resp); err != nil {
		return "", "", err
	}
	return resp.Access, resp.Refresh, nil
}
