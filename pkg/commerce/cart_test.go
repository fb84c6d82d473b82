package commerce_test

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
	"github.com/aussiebroadwan/storefront/pkg/persist"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCartTotals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cart := commerce.NewCart(ctx, persist.NewMemory())
	require.NoError(t, cart.Add(ctx, product("1", 1000)))
	require.NoError(t, cart.Add(ctx, product("1", 1000)))
	require.NoError(t, cart.Add(ctx, product("2", 500)))

	require.True(t, decimal.NewFromInt(2500).Equal(cart.TotalPrice()))
	require.Equal(t, 3, cart.Length())

	require.NoError(t, cart.Remove(ctx, "1"))
	require.True(t, decimal.NewFromInt(500).Equal(cart.TotalPrice()))
	require.Equal(t, 1, cart.Length())
}

func TestCartDecrementRemovesLastUnit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cart := commerce.NewCart(ctx, persist.NewMemory())
	require.NoError(t, cart.Add(ctx, product("1", 10)))
	require.NoError(t, cart.Add(ctx, product("2", 10)))
	require.NoError(t, cart.Add(ctx, product("2", 10)))
	before := cart.Length()

	require.NoError(t, cart.Decrement(ctx, "1"))
	require.Equal(t, before-1, cart.Length())
	require.Len(t, cart.Lines(), 1)
	require.Equal(t, commerce.ID("2"), cart.Lines()[0].ProductID)

	require.NoError(t, cart.Decrement(ctx, "2"))
	require.Equal(t, 1, cart.Lines()[0].Quantity)
}

func TestCartUnknownIDsAreNoOps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := persist.NewMemory()
	cart := commerce.NewCart(ctx, store)

	require.NoError(t, cart.Increment(ctx, "9"))
	require.NoError(t, cart.Decrement(ctx, "9"))
	require.NoError(t, cart.Remove(ctx, "9"))
	require.Empty(t, cart.Lines())
	require.Empty(t, store.Keys())
}

func TestCartRejectsProductWithoutID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cart := commerce.NewCart(ctx, persist.NewMemory())
	require.ErrorIs(t, cart.Add(ctx, commerce.Product{Title: "ghost"}), commerce.ErrInvalidProduct)
}

func TestCartPriceIsFixedAtAdd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cart := commerce.NewCart(ctx, persist.NewMemory())
	require.NoError(t, cart.Add(ctx, product("1", 100)))
	require.NoError(t, cart.Add(ctx, product("1", 900)))

	require.True(t, decimal.NewFromInt(200).Equal(cart.TotalPrice()))
}

func TestCartRandomSequenceInvariants(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rng := rand.New(rand.NewPCG(1, 2))
	cart := commerce.NewCart(ctx, persist.NewMemory())
	prices := map[string]int64{"1": 1000, "2": 500, "3": 250, "4": 75}
	ids := []string{"1", "2", "3", "4"}

	for range 500 {
		id := ids[rng.IntN(len(ids))]
		switch rng.IntN(5) {
		case 0:
			require.NoError(t, cart.Add(ctx, product(id, prices[id])))
		case 1:
			require.NoError(t, cart.Remove(ctx, commerce.ID(id)))
		case 2:
			require.NoError(t, cart.Increment(ctx, commerce.ID(id)))
		case 3:
			require.NoError(t, cart.Decrement(ctx, commerce.ID(id)))
		case 4:
			if rng.IntN(20) == 0 {
				require.NoError(t, cart.Clear(ctx))
			}
		}

		want := decimal.Zero
		units := 0
		for _, l := range cart.Lines() {
			require.Positive(t, l.Quantity)
			want = want.Add(decimal.NewFromInt(prices[string(l.ProductID)] * int64(l.Quantity)))
			units += l.Quantity
		}
		require.True(t, want.Equal(cart.TotalPrice()), "total %s != %s", cart.TotalPrice(), want)
		require.Equal(t, units, cart.Length())
	}
}

func TestCartRestoresSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := persist.NewMemory()
	cart := commerce.NewCart(ctx, store)
	require.NoError(t, cart.Add(ctx, product("1", 1000)))
	require.NoError(t, cart.Add(ctx, product("2", 500)))
	require.NoError(t, cart.Increment(ctx, "1"))

	restored := commerce.NewCart(ctx, store)
	require.Equal(t, cart.Lines()[0].ProductID, restored.Lines()[0].ProductID)
	require.Equal(t, 3, restored.Length())
	require.True(t, cart.TotalPrice().Equal(restored.TotalPrice()))

	t.Run("drops non positive quantities", func(t *testing.T) {
		store := persist.NewMemory()
		lines := []commerce.CartLine{
			{ProductID: "1", UnitPrice: decimal.NewFromInt(5), Quantity: 0},
			{ProductID: "2", UnitPrice: decimal.NewFromInt(5), Quantity: 2},
		}
		require.NoError(t, persist.Save(ctx, store, persist.KeyCart, 1, lines))

		cart := commerce.NewCart(ctx, store)
		require.Len(t, cart.Lines(), 1)
		require.Equal(t, 2, cart.Length())
	})

	t.Run("unknown version starts empty", func(t *testing.T) {
		store := persist.NewMemory()
		require.NoError(t, persist.Save(ctx, store, persist.KeyCart, 99, []string{"x"}))

		require.Empty(t, commerce.NewCart(ctx, store).Lines())
	})
}

func TestCartPersistenceFailureKeepsMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cart := commerce.NewCart(ctx, &failingAdapter{persist.NewMemory()})
	err := cart.Add(ctx, product("1", 10))
	require.ErrorIs(t, err, errDisk)
	require.Equal(t, 1, cart.Length())
}

func TestCartSubscribeAndCheckout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cart := commerce.NewCart(ctx, persist.NewMemory())
	var seen [][]commerce.CartLine
	unsubscribe := cart.Subscribe(func(lines []commerce.CartLine) { seen = append(seen, lines) })

	require.NoError(t, cart.Add(ctx, product("1", 10)))
	require.NoError(t, cart.Add(ctx, product("1", 10)))
	unsubscribe()
	require.NoError(t, cart.Add(ctx, product("2", 10)))

	require.Len(t, seen, 2)
	require.Equal(t, 2, seen[1][0].Quantity)

	items := cart.CheckoutItems()
	out, err := json.Marshal(items)
	require.NoError(t, err)
	require.JSONEq(t, `[{"product_id":"1","quantity":2},{"product_id":"2","quantity":1}]`, string(out))
}
