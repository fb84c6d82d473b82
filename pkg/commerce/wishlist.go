package commerce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aussiebroadwan/storefront/internal/notify"
	"github.com/aussiebroadwan/storefront/pkg/persist"
)

const wishlistVersion = 1

// WishlistRemote is the server side of the wishlist, used while the user is
// authenticated.
type WishlistRemote interface {
	Wishlist(ctx context.Context) ([]Product, error)
	AddToWishlist(ctx context.Context, id ID) error
	RemoveFromWishlist(ctx context.Context, id ID) error
}

// WishlistSnapshot is the full wishlist state. In anonymous mode Entries is
// the local list. In authenticated mode Entries caches the last known remote
// list and Pending holds anonymous entries not yet pushed to the server.
type WishlistSnapshot struct {
	Authenticated bool      `json:"authenticated"`
	Entries       []Product `json:"entries"`
	Pending       []Product `json:"pending,omitempty"`
}

func (s WishlistSnapshot) clone() WishlistSnapshot {
	return WishlistSnapshot{
		Authenticated: s.Authenticated,
		Entries:       slices.Clone(s.Entries),
		Pending:       slices.Clone(s.Pending),
	}
}

// Wishlist tracks the products a visitor has marked.
type Wishlist struct {
	// remoteMu serialises every operation that talks to the server, so a
	// fetched list is never adopted over a change made while it was in
	// flight. It is always taken before mu.
	remoteMu sync.Mutex

	mu    sync.Mutex
	state WishlistSnapshot
	// gen is bumped on every mode change so that a remote call that started
	// in one mode never rolls back state that belongs to another.
	gen uint64

	remote WishlistRemote
	store  persist.Adapter
	logger *slog.Logger
	hub    notify.Hub[WishlistSnapshot]
}

// NewWishlist restores the wishlist from store. The restored mode is kept
// until SetAuthenticated says otherwise.
func NewWishlist(ctx context.Context, store persist.Adapter, remote WishlistRemote, opts ...Option) *Wishlist {
	o := buildOptions(opts)
	w := &Wishlist{
		remote: remote,
		store:  store,
		logger: o.logger.With("store", persist.KeyWishlist),
	}

	var snap WishlistSnapshot
	ok, err := persist.Load(ctx, store, persist.KeyWishlist, wishlistVersion, &snap)
	if err != nil {
		w.logger.Warn("discarding unreadable snapshot", "error", err)
		return w
	}
	if ok {
		snap.Entries = dedupe(snap.Entries)
		snap.Pending = dedupe(snap.Pending)
		w.state = snap
	}
	return w
}

func dedupe(in []Product) []Product {
	seen := make(map[ID]bool, len(in))
	var out []Product
	for _, p := range in {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// Subscribe registers fn to receive the state after every change. Listeners
// must not call Add, Remove, Reconcile or Refresh.
func (w *Wishlist) Subscribe(fn func(WishlistSnapshot)) (unsubscribe func()) {
	return w.hub.Subscribe(fn)
}

// Snapshot returns a copy of the current state.
func (w *Wishlist) Snapshot() WishlistSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Authenticated reports the current mode.
func (w *Wishlist) Authenticated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Authenticated
}

// Entries returns the visible list: the cached remote entries followed by
// pending entries that are not on the server yet.
func (w *Wishlist) Entries() []Product {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible()
}

func (w *Wishlist) visible() []Product {
	out := slices.Clone(w.state.Entries)
	for _, p := range w.state.Pending {
		if indexOf(out, p.ID) < 0 {
			out = append(out, p)
		}
	}
	return out
}

func (w *Wishlist) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.visible())
}

func (w *Wishlist) Contains(id ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return indexOf(w.state.Entries, id) >= 0 || indexOf(w.state.Pending, id) >= 0
}

func indexOf(list []Product, id ID) int {
	return slices.IndexFunc(list, func(p Product) bool { return p.ID == id })
}

// Add marks p. In authenticated mode the entry is shown immediately and
// rolled back if the server rejects it.
func (w *Wishlist) Add(ctx context.Context, p Product) error {
	if err := p.validate(); err != nil {
		return err
	}

	w.remoteMu.Lock()
	defer w.remoteMu.Unlock()

	w.mu.Lock()
	if indexOf(w.state.Entries, p.ID) >= 0 || indexOf(w.state.Pending, p.ID) >= 0 {
		w.mu.Unlock()
		return nil
	}
	w.state.Entries = append(w.state.Entries, p)
	authed, gen := w.state.Authenticated, w.gen
	saveErr := w.commitLocked(ctx)

	if !authed {
		return saveErr
	}

	if err := w.remote.AddToWishlist(ctx, p.ID); err != nil {
		w.rollback(ctx, gen, func() bool {
			i := indexOf(w.state.Entries, p.ID)
			if i < 0 {
				return false
			}
			w.state.Entries = slices.Delete(w.state.Entries, i, i+1)
			return true
		})
		return fmt.Errorf("commerce: add %s to wishlist: %w", p.ID, err)
	}
	return saveErr
}

// Remove unmarks id. In authenticated mode the removal is visible
// immediately and undone if the server call fails.
func (w *Wishlist) Remove(ctx context.Context, id ID) error {
	w.remoteMu.Lock()
	defer w.remoteMu.Unlock()

	w.mu.Lock()
	authed, gen := w.state.Authenticated, w.gen

	// A pending entry never reached the server, so dropping it is local.
	pi := indexOf(w.state.Pending, id)
	if pi >= 0 {
		w.state.Pending = slices.Delete(w.state.Pending, pi, pi+1)
	}

	i := indexOf(w.state.Entries, id)
	if i < 0 {
		if pi < 0 {
			w.mu.Unlock()
			return nil
		}
		return w.commitLocked(ctx)
	}
	removed := w.state.Entries[i]
	w.state.Entries = slices.Delete(w.state.Entries, i, i+1)
	saveErr := w.commitLocked(ctx)

	if !authed {
		return saveErr
	}

	if err := w.remote.RemoveFromWishlist(ctx, id); err != nil {
		w.rollback(ctx, gen, func() bool {
			if indexOf(w.state.Entries, id) >= 0 {
				return false
			}
			w.state.Entries = slices.Insert(w.state.Entries, min(i, len(w.state.Entries)), removed)
			return true
		})
		return fmt.Errorf("commerce: remove %s from wishlist: %w", id, err)
	}
	return saveErr
}

// SetAuthenticated switches modes. Going from anonymous to authenticated
// moves the local entries to Pending and reconciles with the server. Going
// back to anonymous drops everything without waiting for server calls in
// flight; their results are discarded.
func (w *Wishlist) SetAuthenticated(ctx context.Context, authenticated bool) error {
	w.mu.Lock()
	if w.state.Authenticated == authenticated {
		w.mu.Unlock()
		return nil
	}
	w.gen++

	if !authenticated {
		w.state = WishlistSnapshot{}
		return w.commitLocked(ctx)
	}

	w.state = WishlistSnapshot{
		Authenticated: true,
		Pending:       dedupe(append(w.state.Pending, w.state.Entries...)),
	}
	saveErr := w.commitLocked(ctx)

	if err := w.Reconcile(ctx); err != nil {
		return err
	}
	return saveErr
}

// Reconcile pushes pending entries missing on the server and adopts the
// union as the cache. Entries whose push fails stay pending and the joined
// errors are returned; calling Reconcile again retries them.
func (w *Wishlist) Reconcile(ctx context.Context) error {
	w.remoteMu.Lock()
	defer w.remoteMu.Unlock()

	w.mu.Lock()
	if !w.state.Authenticated {
		w.mu.Unlock()
		return nil
	}
	pending := slices.Clone(w.state.Pending)
	gen := w.gen
	w.mu.Unlock()

	remote, err := w.remote.Wishlist(ctx)
	if err != nil {
		return fmt.Errorf("commerce: fetch wishlist: %w", err)
	}
	remote = dedupe(remote)

	var (
		failed []Product
		errs   []error
	)
	for _, p := range pending {
		if indexOf(remote, p.ID) >= 0 {
			continue
		}
		if err := w.remote.AddToWishlist(ctx, p.ID); err != nil {
			failed = append(failed, p)
			errs = append(errs, fmt.Errorf("push %s: %w", p.ID, err))
			continue
		}
		remote = append(remote, p)
	}

	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		return nil
	}
	w.state.Entries = remote
	// Only keep failures the user has not removed in the meantime.
	w.state.Pending = slices.DeleteFunc(failed, func(p Product) bool {
		return indexOf(w.state.Pending, p.ID) < 0
	})
	saveErr := w.commitLocked(ctx)

	if len(errs) > 0 {
		return fmt.Errorf("commerce: reconcile wishlist: %w", errors.Join(errs...))
	}
	return saveErr
}

// Refresh re-fetches the server list in authenticated mode.
func (w *Wishlist) Refresh(ctx context.Context) error {
	w.remoteMu.Lock()
	defer w.remoteMu.Unlock()

	w.mu.Lock()
	if !w.state.Authenticated {
		w.mu.Unlock()
		return nil
	}
	gen := w.gen
	w.mu.Unlock()

	remote, err := w.remote.Wishlist(ctx)
	if err != nil {
		return fmt.Errorf("commerce: fetch wishlist: %w", err)
	}

	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		return nil
	}
	w.state.Entries = dedupe(remote)
	return w.commitLocked(ctx)
}

// commitLocked writes the snapshot, releases the lock and notifies
// subscribers. It must be called with w.mu held.
func (w *Wishlist) commitLocked(ctx context.Context) error {
	var err error
	if saveErr := persist.Save(ctx, w.store, persist.KeyWishlist, wishlistVersion, w.state); saveErr != nil {
		w.logger.Warn("snapshot write failed", "error", saveErr)
		err = fmt.Errorf("commerce: save wishlist: %w", saveErr)
	}
	snap := w.state.clone()
	w.mu.Unlock()

	w.hub.Publish(snap)
	return err
}

// rollback undoes an optimistic change unless the mode changed since.
func (w *Wishlist) rollback(ctx context.Context, gen uint64, undo func() bool) {
	w.mu.Lock()
	if w.gen != gen || !undo() {
		w.mu.Unlock()
		return
	}
	_ = w.commitLocked(ctx)
}
