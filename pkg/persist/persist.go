// Package persist defines the narrow key/value seam every client-side store
// writes its snapshot through, plus the helpers shared by the drivers.
//
// Drivers live under drivers/ (sqlite, redis). An in-memory adapter is
// provided here because tests across the module use it.
package persist

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("persist: not found")

	// ErrSchemaVersion is returned when a stored snapshot carries a version
	// the reader does not understand.
	ErrSchemaVersion = errors.New("persist: unsupported schema version")
)

// Well known keys, one per store.
const (
	KeySession        = "session"
	KeyCart           = "cart"
	KeyWishlist       = "wishlist"
	KeyRecentlyViewed = "recently-viewed"
)

// Adapter is a get/set/remove interface over durable storage scoped to one
// client. Implementations must be safe for concurrent use.
type Adapter interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
