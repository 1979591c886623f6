// Package cache provides the shared key-value cache used to avoid repeated
// upstream calls, with in-process, Redis and Badger backends.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache closed")

// Cache is a key-value store with per-entry expiry. Implementations must be
// safe for concurrent use; concurrent writes to a key are last-writer-wins.
type Cache interface {
	// Get returns the value stored at key. ok is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value at key for ttl. A non-positive ttl stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Key namespaces, also used as metric labels.
const (
	NamespacePaper  = "paper"
	NamespaceSearch = "search"
)

// PaperKey returns the cache key for a canonical paper id.
func PaperKey(id string) string {
	return NamespacePaper + ":" + id
}

// SearchKey returns the cache key for a search page.
func SearchKey(query, cursor string, perPage int) string {
	return NamespaceSearch + ":" + query + ":" + cursor + ":" + strconv.Itoa(perPage)
}

// GetJSON loads key and decodes it into dst. A decode failure is returned
// as an error with ok set to false so callers can treat it as a miss.
func GetJSON(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key for ttl.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
