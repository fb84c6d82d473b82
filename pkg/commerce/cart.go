package commerce

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aussiebroadwan/storefront/internal/notify"
	"github.com/aussiebroadwan/storefront/pkg/persist"
	"github.com/shopspring/decimal"
)

const cartVersion = 1

// CartLine is one product in the cart. Quantity is always at least 1.
type CartLine struct {
	ProductID ID              `json:"productId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Product   Product         `json:"product"`
}

// Subtotal is UnitPrice × Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderItem is one line of an order payload.
type OrderItem struct {
	ProductID ID  `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// Cart is the shopping cart, ordered by first add.
type Cart struct {
	mu    sync.Mutex
	lines []CartLine

	store  persist.Adapter
	logger *slog.Logger
	hub    notify.Hub[[]CartLine]
}

// NewCart restores the last cart snapshot from store, or starts empty when
// there is none or it cannot be read.
func NewCart(ctx context.Context, store persist.Adapter, opts ...Option) *Cart {
	o := buildOptions(opts)
	c := &Cart{store: store, logger: o.logger.With("store", persist.KeyCart)}

	var lines []CartLine
	ok, err := persist.Load(ctx, store, persist.KeyCart, cartVersion, &lines)
	if err != nil {
		c.logger.Warn("discarding unreadable snapshot", "error", err)
		return c
	}
	if ok {
		for _, l := range lines {
			if l.Quantity > 0 && l.ProductID != "" {
				c.lines = append(c.lines, l)
			}
		}
	}
	return c
}

// Subscribe registers fn to receive the cart lines after every change.
func (c *Cart) Subscribe(fn func([]CartLine)) (unsubscribe func()) {
	return c.hub.Subscribe(fn)
}

// Add puts one unit of p in the cart. A product already in the cart has its
// quantity raised; otherwise a new line is appended with the price of p at
// the time of the call.
func (c *Cart) Add(ctx context.Context, p Product) error {
	if err := p.validate(); err != nil {
		return err
	}
	return c.mutate(ctx, func() bool {
		if i := c.index(p.ID); i >= 0 {
			c.lines[i].Quantity++
			return true
		}
		c.lines = append(c.lines, CartLine{
			ProductID: p.ID,
			UnitPrice: p.Price,
			Quantity:  1,
			Product:   p,
		})
		return true
	})
}

// Remove deletes the line for id whatever its quantity.
func (c *Cart) Remove(ctx context.Context, id ID) error {
	return c.mutate(ctx, func() bool {
		i := c.index(id)
		if i < 0 {
			return false
		}
		c.lines = slices.Delete(c.lines, i, i+1)
		return true
	})
}

// Increment adds one unit to an existing line. Unknown ids are ignored.
func (c *Cart) Increment(ctx context.Context, id ID) error {
	return c.mutate(ctx, func() bool {
		i := c.index(id)
		if i < 0 {
			return false
		}
		c.lines[i].Quantity++
		return true
	})
}

// Decrement removes one unit; the line goes away when its last unit does.
func (c *Cart) Decrement(ctx context.Context, id ID) error {
	return c.mutate(ctx, func() bool {
		i := c.index(id)
		if i < 0 {
			return false
		}
		if c.lines[i].Quantity > 1 {
			c.lines[i].Quantity--
		} else {
			c.lines = slices.Delete(c.lines, i, i+1)
		}
		return true
	})
}

// Clear empties the cart, typically after an order was placed.
func (c *Cart) Clear(ctx context.Context) error {
	return c.mutate(ctx, func() bool {
		c.lines = nil
		return true
	})
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

// Length is the total number of units in the cart.
func (c *Cart) Length() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice is recomputed from the lines on every call.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// CheckoutItems returns the order payload lines for the current cart.
func (c *Cart) CheckoutItems() []OrderItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, OrderItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return items
}

func (c *Cart) index(id ID) int {
	return slices.IndexFunc(c.lines, func(l CartLine) bool { return l.ProductID == id })
}

// mutate runs fn under the lock and, when fn reports a change, writes the
// snapshot before releasing it.
func (c *Cart) mutate(ctx context.Context, fn func() bool) error {
	c.mu.Lock()
	if !fn() {
		c.mu.Unlock()
		return nil
	}

	var err error
	if saveErr := persist.Save(ctx, c.store, persist.KeyCart, cartVersion, c.lines); saveErr != nil {
		c.logger.Warn("snapshot write failed", "error", saveErr)
		err = fmt.Errorf("commerce: save cart: %w", saveErr)
	}
	snap := slices.Clone(c.lines)
	c.mu.Unlock()

	c.hub.Publish(snap)
	return err
}
