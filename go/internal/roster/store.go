package roster

import "context"

// Store defines what the roster layer needs from a key-value store.
// Implementations live in the storage package.
type Store interface {
	// Get returns the raw value for key. The second return is false
	// when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes the raw value for key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}
