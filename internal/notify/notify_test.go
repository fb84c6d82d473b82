package notify_test

import (
	"testing"

	"github.com/aussiebroadwan/storefront/internal/notify"
	"github.com/stretchr/testify/require"
)

func TestHubPublishOrder(t *testing.T) {
	t.Parallel()

	var hub notify.Hub[int]
	var got []string

	hub.Subscribe(func(v int) { got = append(got, "a") })
	unsub := hub.Subscribe(func(v int) { got = append(got, "b") })
	hub.Subscribe(func(v int) { got = append(got, "c") })

	hub.Publish(1)
	require.Equal(t, []string{"a", "b", "c"}, got)

	unsub()
	unsub() // second call is a no-op

	got = nil
	hub.Publish(2)
	require.Equal(t, []string{"a", "c"}, got)
}
