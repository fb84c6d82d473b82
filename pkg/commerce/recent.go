package commerce

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/storefront/internal/notify"
	"github.com/aussiebroadwan/storefront/pkg/persist"
)

const (
	// MaxRecent bounds the recently-viewed list.
	MaxRecent = 10

	// DefaultLastCount is used by Last when count <= 0.
	DefaultLastCount = 5

	recentVersion = 1
)

// RecentEntry is a viewed product, stamped with the time of its last view.
type RecentEntry struct {
	Product  Product   `json:"product"`
	ViewedAt time.Time `json:"viewedAt"`
}

// RecentlyViewed keeps the most recently viewed products, newest first and
// unique per product.
type RecentlyViewed struct {
	mu      sync.Mutex
	entries []RecentEntry

	store  persist.Adapter
	logger *slog.Logger
	now    func() time.Time
	hub    notify.Hub[[]RecentEntry]
}

// NewRecentlyViewed restores the list from store.
func NewRecentlyViewed(ctx context.Context, store persist.Adapter, opts ...Option) *RecentlyViewed {
	o := buildOptions(opts)
	r := &RecentlyViewed{
		store:  store,
		logger: o.logger.With("store", persist.KeyRecentlyViewed),
		now:    o.now,
	}

	var entries []RecentEntry
	ok, err := persist.Load(ctx, store, persist.KeyRecentlyViewed, recentVersion, &entries)
	if err != nil {
		r.logger.Warn("discarding unreadable snapshot", "error", err)
		return r
	}
	if ok {
		r.entries = normalizeRecent(entries)
	}
	return r
}

// normalizeRecent drops duplicates and entries past the bound from a
// restored snapshot, keeping the first occurrence of each product.
func normalizeRecent(in []RecentEntry) []RecentEntry {
	seen := make(map[ID]bool, len(in))
	out := make([]RecentEntry, 0, min(len(in), MaxRecent))
	for _, e := range in {
		if e.Product.ID == "" || seen[e.Product.ID] {
			continue
		}
		seen[e.Product.ID] = true
		out = append(out, e)
		if len(out) == MaxRecent {
			break
		}
	}
	return out
}

func (r *RecentlyViewed) Subscribe(fn func([]RecentEntry)) (unsubscribe func()) {
	return r.hub.Subscribe(fn)
}

// Add records a view of p: any previous entry for p is removed and a fresh
// one is put at the front, then the list is truncated to MaxRecent.
func (r *RecentlyViewed) Add(ctx context.Context, p Product) error {
	if err := p.validate(); err != nil {
		return err
	}
	return r.mutate(ctx, func() bool {
		r.entries = slices.DeleteFunc(r.entries, func(e RecentEntry) bool { return e.Product.ID == p.ID })
		r.entries = slices.Insert(r.entries, 0, RecentEntry{Product: p, ViewedAt: r.now().UTC()})
		if len(r.entries) > MaxRecent {
			r.entries = r.entries[:MaxRecent]
		}
		return true
	})
}

func (r *RecentlyViewed) Remove(ctx context.Context, id ID) error {
	return r.mutate(ctx, func() bool {
		n := len(r.entries)
		r.entries = slices.DeleteFunc(r.entries, func(e RecentEntry) bool { return e.Product.ID == id })
		return len(r.entries) != n
	})
}

func (r *RecentlyViewed) Clear(ctx context.Context) error {
	return r.mutate(ctx, func() bool {
		r.entries = nil
		return true
	})
}

func (r *RecentlyViewed) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Last returns up to count entries, newest first. count <= 0 means
// DefaultLastCount.
func (r *RecentlyViewed) Last(count int) []RecentEntry {
	if count <= 0 {
		count = DefaultLastCount
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries[:min(count, len(r.entries))])
}

func (r *RecentlyViewed) mutate(ctx context.Context, fn func() bool) error {
	r.mu.Lock()
	if !fn() {
		r.mu.Unlock()
		return nil
	}

	var err error
	if saveErr := persist.Save(ctx, r.store, persist.KeyRecentlyViewed, recentVersion, r.entries); saveErr != nil {
		r.logger.Warn("snapshot write failed", "error", saveErr)
		err = fmt.Errorf("commerce: save recently viewed: %w", saveErr)
	}
	snap := slices.Clone(r.entries)
	r.mu.Unlock()

	r.hub.Publish(snap)
	return err
}
