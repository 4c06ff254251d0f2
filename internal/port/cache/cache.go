// Package cache defines the byte-level cache port used for the resolver's
// candidate snapshot.
package cache

import (
	"context"
	"time"
)

// Cache is a key-value byte cache. A miss is (nil, false, nil); errors are
// reserved for the backing store misbehaving. Deletes of absent keys are
// no-ops so registry writes can invalidate unconditionally.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
