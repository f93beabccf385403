package cache

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get retrieves a value from cache. A missing key returns (nil, nil).
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache. An expiration <= 0 keeps the value forever.
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend, persisting pending writes where the backend
	// buffers them
	Close() error

	// Health checks cache health
	Health(ctx context.Context) error
}

// Flusher is implemented by backends that buffer writes and can persist them
// without closing.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Flush persists pending writes of c if it buffers any.
func Flush(ctx context.Context, c Cache) error {
	if f, ok := c.(Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}

// CacheError represents a cache operation error
type CacheError struct {
	Operation string
	Key       string
	Err       error
}

func (e *CacheError) Error() string {
	return "cache " + e.Operation + " failed for key '" + e.Key + "': " + e.Err.Error()
}

func (e *CacheError) Unwrap() error {
	return e.Err
}
