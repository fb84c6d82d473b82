package storefront

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestAttempt(t *testing.T) {
	first := newAttempt("old")
	assert.Equal(t, 1, first.Number)
	assert.False(t, first.Retried())
	_, err := ulid.ParseStrict(first.ID)
	require.NoError(t, err)

	second := first.Next("new")
	assert.True(t, second.Retried())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new", second.Token)

	// The original value is untouched.
	assert.Equal(t, "old", first.Token)
	assert.Equal(t, 1, first.Number)
}

func TestNewRequestIDIsMonotonic(t *testing.T) {
	prev := newRequestID()
	for range 100 {
		next := newRequestID()
		assert.Greater(t, next, prev)
		prev = next
	}
}
