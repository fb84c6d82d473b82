package commerce_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
	"github.com/aussiebroadwan/storefront/pkg/persist"
	"github.com/shopspring/decimal"
)

func product(id string, price int64) commerce.Product {
	return commerce.Product{
		ID:    commerce.ID(id),
		Title: "product " + id,
		Price: decimal.NewFromInt(price),
		Stock: 10,
	}
}

var errDisk = errors.New("disk full")

// failingAdapter accepts reads but fails every write.
type failingAdapter struct{ *persist.Memory }

func (f *failingAdapter) Set(context.Context, string, []byte) error { return errDisk }

// fakeRemote is an in-memory WishlistRemote that can be told to fail.
type fakeRemote struct {
	mu       sync.Mutex
	items    []commerce.Product
	adds     []commerce.ID
	failAdd  map[commerce.ID]bool
	failAll  bool
	fetchErr error
}

func (f *fakeRemote) Wishlist(context.Context) ([]commerce.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]commerce.Product, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeRemote) AddToWishlist(_ context.Context, id commerce.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, id)
	if f.failAll || f.failAdd[id] {
		return fmt.Errorf("remote add %s failed", id)
	}
	f.items = append(f.items, commerce.Product{ID: id})
	return nil
}

func (f *fakeRemote) RemoveFromWishlist(_ context.Context, id commerce.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("remote remove %s failed", id)
	}
	for i, p := range f.items {
		if p.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRemote) addCount(id commerce.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.adds {
		if a == id {
			n++
		}
	}
	return n
}

// gatedRemote holds the first Wishlist fetch after arm until release is
// closed.
type gatedRemote struct {
	*fakeRemote
	armed    atomic.Bool
	fetching chan struct{}
	release  chan struct{}
}

func newGatedRemote(items ...commerce.Product) *gatedRemote {
	return &gatedRemote{
		fakeRemote: &fakeRemote{items: items},
		fetching:   make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (g *gatedRemote) arm() { g.armed.Store(true) }

func (g *gatedRemote) Wishlist(ctx context.Context) ([]commerce.Product, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.fetching)
		<-g.release
	}
	return g.fakeRemote.Wishlist(ctx)
}
