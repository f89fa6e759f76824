package providers

import (
	"context"
)

// CacheProvider caches serialized HTTP responses for read-heavy catalog
// endpoints. Values are opaque byte payloads; expiry is best effort.
type CacheProvider interface {
	// Get retrieves a cached value. A miss is returned as an error.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL in seconds.
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes a cached value.
	Delete(ctx context.Context, key string) error
}
