// Package memory holds deployment-scoped text that shapes pipeline runs,
// most importantly per-stage instruction overrides stored under
// agents/<stage>. Keys are /-separated paths; values are raw bytes.
//
// Stores perform I/O on every call. Cache layers an index and lazily
// loaded content over a Store and batches writes until Flush.
package memory

import "context"

// Store translates between external storage and the key-value namespace.
type Store interface {
	// List returns all keys in the store, sorted.
	List(ctx context.Context) ([]string, error)
	// Load retrieves entries for the given keys. A missing key is ErrKeyNotFound.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save creates or overwrites entries.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes entries. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
