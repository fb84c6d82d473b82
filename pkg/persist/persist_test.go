package persist_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/persist"
	"github.com/stretchr/testify/require"
)

type lines struct {
	Items []string `json:"items"`
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := persist.NewMemory()

	var got lines
	found, err := persist.Load(ctx, mem, persist.KeyCart, 1, &got)
	require.NoError(t, err)
	require.False(t, found, "empty adapter has no snapshot")

	require.NoError(t, persist.Save(ctx, mem, persist.KeyCart, 1, lines{Items: []string{"a", "b"}}))

	found, err = persist.Load(ctx, mem, persist.KeyCart, 1, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []string{"a", "b"}, got.Items)

	raw, err := mem.Get(ctx, persist.KeyCart)
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &env))
	require.JSONEq(t, `1`, string(env["version"]))
}

func TestSnapshotVersionMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := persist.NewMemory()

	require.NoError(t, persist.Save(ctx, mem, persist.KeyCart, 2, lines{Items: []string{"x"}}))

	got := lines{Items: []string{"keep"}}
	found, err := persist.Load(ctx, mem, persist.KeyCart, 1, &got)
	require.ErrorIs(t, err, persist.ErrSchemaVersion)
	require.False(t, found)
	require.Equal(t, []string{"keep"}, got.Items)
}

func TestSnapshotCorrupt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := persist.NewMemory()
	require.NoError(t, mem.Set(ctx, persist.KeyCart, []byte("{not json")))

	var got lines
	_, err := persist.Load(ctx, mem, persist.KeyCart, 1, &got)
	require.Error(t, err)
}

func TestMemoryCopiesValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := persist.NewMemory()

	value := []byte("abc")
	require.NoError(t, mem.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))

	require.NoError(t, mem.Remove(ctx, "k"))
	require.NoError(t, mem.Remove(ctx, "k"), "removing a missing key is fine")

	_, err = mem.Get(ctx, "k")
	require.ErrorIs(t, err, persist.ErrNotFound)
}

func TestSealedAdapter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := persist.NewMemory()

	sealed, err := persist.NewSealed(ctx, mem, "hunter2", persist.KeySession)
	require.NoError(t, err)

	require.NoError(t, sealed.Set(ctx, persist.KeySession, []byte(`{"refresh":"r-123"}`)))
	require.NoError(t, sealed.Set(ctx, persist.KeyCart, []byte(`{"items":[]}`)))

	t.Run("selected keys are encrypted at rest", func(t *testing.T) {
		raw, err := mem.Get(ctx, persist.KeySession)
		require.NoError(t, err)
		require.NotContains(t, string(raw), "r-123")

		plain, err := sealed.Get(ctx, persist.KeySession)
		require.NoError(t, err)
		require.JSONEq(t, `{"refresh":"r-123"}`, string(plain))
	})

	t.Run("other keys pass through", func(t *testing.T) {
		raw, err := mem.Get(ctx, persist.KeyCart)
		require.NoError(t, err)
		require.JSONEq(t, `{"items":[]}`, string(raw))
	})

	t.Run("salt is reused on reopen", func(t *testing.T) {
		reopened, err := persist.NewSealed(ctx, mem, "hunter2", persist.KeySession)
		require.NoError(t, err)

		plain, err := reopened.Get(ctx, persist.KeySession)
		require.NoError(t, err)
		require.JSONEq(t, `{"refresh":"r-123"}`, string(plain))
	})

	t.Run("wrong passphrase fails closed", func(t *testing.T) {
		wrong, err := persist.NewSealed(ctx, mem, "not-it", persist.KeySession)
		require.NoError(t, err)

		_, err = wrong.Get(ctx, persist.KeySession)
		require.ErrorIs(t, err, cryptox.ErrDecrypt)
	})

	t.Run("missing keys stay not found", func(t *testing.T) {
		_, err := sealed.Get(ctx, persist.KeyWishlist)
		require.ErrorIs(t, err, persist.ErrNotFound)
	})
}
