package semcache

import (
	"context"
	"time"
)

// Store is the persistence contract for cache entries.
type Store interface {
	Get(ctx context.Context, fingerprint string) (payload []byte, found bool, err error)
	Put(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error
}
