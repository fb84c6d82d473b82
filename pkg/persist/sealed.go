package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/storefront/pkg/cryptox"
)

// saltKey holds the random salt the sealing key is derived from. It is
// stored in clear next to the sealed values.
const saltKey = "seal.salt"

// Sealed wraps an Adapter and encrypts the values stored under a chosen set
// of keys. With no keys every value is sealed.
type Sealed struct {
	inner  Adapter
	sealer *cryptox.Sealer
	keys   map[string]bool
}

// NewSealed derives the sealing key from passphrase and the salt stored in
// inner, creating the salt on first use.
func NewSealed(ctx context.Context, inner Adapter, passphrase string, keys ...string) (*Sealed, error) {
	salt, err := inner.Get(ctx, saltKey)
	if errors.Is(err, ErrNotFound) {
		salt, err = cryptox.RandomBytes(cryptox.SaltSize)
		if err != nil {
			return nil, err
		}
		if err := inner.Set(ctx, saltKey, salt); err != nil {
			return nil, fmt.Errorf("persist: store salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("persist: read salt: %w", err)
	}

	sealer, err := cryptox.NewSealer(passphrase, salt)
	if err != nil {
		return nil, err
	}

	s := &Sealed{inner: inner, sealer: sealer}
	if len(keys) > 0 {
		s.keys = make(map[string]bool, len(keys))
		for _, k := range keys {
			s.keys[k] = true
		}
	}
	return s, nil
}

func (s *Sealed) sealed(key string) bool {
	return s.keys == nil || s.keys[key]
}

// Get implements Adapter.
func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil || !s.sealed(key) {
		return raw, err
	}

	plain, err := s.sealer.Open(raw, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("persist: open %q: %w", key, err)
	}
	return plain, nil
}

// Set implements Adapter.
func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	if !s.sealed(key) {
		return s.inner.Set(ctx, key, value)
	}

	sealed, err := s.sealer.Seal(value, []byte(key))
	if err != nil {
		return fmt.Errorf("persist: seal %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

// Remove implements Adapter.
func (s *Sealed) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}
