package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
	"github.com/aussiebroadwan/storefront/pkg/metrics"
	"github.com/aussiebroadwan/storefront/pkg/persist"
	redisstore "github.com/aussiebroadwan/storefront/pkg/persist/drivers/redis"
	"github.com/aussiebroadwan/storefront/pkg/persist/drivers/sqlite"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/aussiebroadwan/storefront/pkg/storefront"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// syncTimeout bounds the wishlist reconciliation run on login.
	syncTimeout = 30 * time.Second
)

// Application wires the storefront client runtime: storage, session,
// request client and the state stores.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store   persist.Adapter
	closeDB func() error

	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	Sessions *storefront.SessionStore
	Client   *storefront.Client
	Cart     *commerce.Cart
	Wishlist *commerce.Wishlist
	Recent   *commerce.RecentlyViewed
	Keeper   *storefront.Keeper

	// mu guards the wishlist sync hand-off.
	mu          sync.Mutex
	syncing     bool
	dirty       bool
	unsubscribe func()
}

// Option customises New, mostly for tests.
type Option func(*Application)

// WithLogger replaces the logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(app *Application) { app.logger = l }
}

// WithStore uses store instead of the configured driver. The caller keeps
// ownership of it.
func WithStore(store persist.Adapter) Option {
	return func(app *Application) { app.store = store }
}

// New creates an Application with all dependencies initialised.
func New(ctx context.Context, cfg Config, opts ...Option) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "storefront",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		closeDB: func() error { return nil },
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.store == nil {
		if err := app.initStorage(ctx); err != nil {
			return nil, err
		}
	}
	if cfg.SealPassphrase != "" {
		sealed, err := persist.NewSealed(ctx, app.store, cfg.SealPassphrase, persist.KeySession)
		if err != nil {
			_ = app.closeDB()
			return nil, fmt.Errorf("failed to initialize sealed storage: %w", err)
		}
		app.store = sealed
	}

	if err := app.initClient(ctx); err != nil {
		_ = app.closeDB()
		return nil, err
	}
	app.initStores(ctx)

	return app, nil
}

// initStorage opens the configured persistence driver.
func (app *Application) initStorage(ctx context.Context) error {
	switch app.cfg.Storage {
	case StorageMemory:
		app.store = persist.NewMemory()

	case StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(app.cfg.DatabaseFile), 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.logger.Debug("database migrations applied", "file", app.cfg.DatabaseFile)
		app.store, app.closeDB = db, db.Close

	case StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			DB:       app.cfg.RedisDB,
			Password: app.cfg.RedisPassword,
		})
		store := redisstore.NewStore(client, redisstore.WithTTL(app.cfg.RedisTTL))
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to reach redis at %s: %w", app.cfg.RedisAddr, err)
		}
		app.store, app.closeDB = store, store.Close

	default:
		return fmt.Errorf("unknown storage driver %q", app.cfg.Storage)
	}
	return nil
}

func (app *Application) initClient(ctx context.Context) error {
	guest, err := storefront.ParseGuestRoutes(app.cfg.GuestRoutes)
	if err != nil {
		return err
	}

	app.Registry = prometheus.NewRegistry()
	app.Metrics = metrics.NewCollector(app.Registry)

	app.Sessions = storefront.NewSessionStore(ctx, app.store, app.logger)
	app.Client = storefront.NewClient(app.cfg.APIURL, app.Sessions,
		storefront.WithHTTPClient(&http.Client{
			Timeout:   app.cfg.RequestTimeout,
			Transport: slogx.NewTransport(nil, app.logger),
		}),
		storefront.WithLogger(app.logger),
		storefront.WithMetrics(app.Metrics),
		storefront.WithGuestRoutes(guest),
		storefront.WithRenewalTimeout(app.cfg.RenewalTimeout),
		storefront.WithRateLimit(app.cfg.RateLimit),
		storefront.WithExpirySkew(app.cfg.ExpirySkew),
	)
	app.Keeper = storefront.NewKeeper(app.Client, app.logger, app.cfg.KeeperInterval)
	return nil
}

func (app *Application) initStores(ctx context.Context) {
	opts := []commerce.Option{commerce.WithLogger(app.logger)}
	app.Cart = commerce.NewCart(ctx, app.store, opts...)
	app.Recent = commerce.NewRecentlyViewed(ctx, app.store, opts...)
	app.Wishlist = commerce.NewWishlist(ctx, app.store, app.Client, opts...)

	// The wishlist follows the session: login reconciles, logout resets.
	app.unsubscribe = app.Sessions.Subscribe(func(storefront.SessionState) { app.syncWishlist() })
	app.syncWishlist()
}

// syncWishlist moves the wishlist to the mode of the current session. Only
// one caller syncs at a time; a caller arriving meanwhile, including one
// re-entering from a session change made by the sync itself, marks the
// state dirty and the running sync goes round again. Published states can
// arrive out of order, so the session is always re-read.
func (app *Application) syncWishlist() {
	app.mu.Lock()
	app.dirty = true
	if app.syncing {
		app.mu.Unlock()
		return
	}
	app.syncing = true

	for app.dirty {
		app.dirty = false
		app.mu.Unlock()

		want := app.Sessions.IsAuthenticated()
		if app.Wishlist.Authenticated() != want {
			ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
			if err := app.Wishlist.SetAuthenticated(ctx, want); err != nil {
				app.logger.Warn("wishlist sync failed", "authenticated", want, "error", err)
			}
			cancel()
		}

		app.mu.Lock()
	}
	app.syncing = false
	app.mu.Unlock()
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Checkout places an order for the cart contents and empties the cart once
// the API has accepted it.
func (app *Application) Checkout(ctx context.Context, req storefront.OrderRequest) (*storefront.Order, error) {
	req.Items = app.Cart.CheckoutItems()
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: the cart is empty", storefront.ErrValidation)
	}

	order, err := app.Client.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := app.Cart.Clear(ctx); err != nil {
		app.logger.Warn("order placed but cart not cleared", "order", order.ID, "error", err)
	}
	return order, nil
}

// Run keeps the session fresh in the background, and serves metrics when
// configured, until a shutdown signal arrives.
func (app *Application) Run() error {
	app.Keeper.Start()
	defer app.Keeper.Stop()

	serverErrors := make(chan error, 1)
	var server *http.Server
	if app.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(app.Registry))
		server = &http.Server{
			Addr:              app.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
		}
		go func() {
			serverErrors <- server.ListenAndServe()
		}()
		app.logger.Info("metrics listening", "addr", app.cfg.MetricsAddr)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
	}

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			app.logger.Error("graceful metrics shutdown failed", "error", err)
		}
	}
	return nil
}

// Close releases the storage driver.
func (app *Application) Close() error {
	if app.unsubscribe != nil {
		app.unsubscribe()
	}
	if err := app.closeDB(); err != nil {
		app.logger.Error("error closing storage", "error", err)
		return err
	}
	return nil
}
