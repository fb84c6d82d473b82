package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// envelope wraps every persisted snapshot so the shape can be migrated
// safely later on.
type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Save encodes v inside a versioned envelope and writes it under key.
func Save[T any](ctx context.Context, a Adapter, key string, version int, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persist: encode %q: %w", key, err)
	}

	raw, err := json.Marshal(envelope{Version: version, Data: data})
	if err != nil {
		return fmt.Errorf("persist: encode %q envelope: %w", key, err)
	}

	if err := a.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("persist: write %q: %w", key, err)
	}
	return nil
}

// Load reads the snapshot stored under key into v. It reports false when
// nothing is stored. A snapshot written with a different version yields
// ErrSchemaVersion and leaves v untouched.
func Load[T any](ctx context.Context, a Adapter, key string, version int, v *T) (bool, error) {
	raw, err := a.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("persist: read %q: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("persist: decode %q envelope: %w", key, err)
	}
	if env.Version != version {
		return false, fmt.Errorf("%w: %q has v%d, want v%d", ErrSchemaVersion, key, env.Version, version)
	}

	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return false, fmt.Errorf("persist: decode %q: %w", key, err)
	}

	*v = out
	return true, nil
}
