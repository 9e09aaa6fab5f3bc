package cache

import (
	"context"
	"time"
)

// BytesCache is the minimal cache surface the services need. The redis
// implementation lives in rediscache; tests substitute an in-memory fake.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
