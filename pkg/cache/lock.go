package cache

import (
	"context"
	"time"
)

// AcquireLock takes a best-effort advisory lock via SETNX. It returns true
// when the lock was acquired by this caller. The lock expires on its own
// after ttl so a crashed holder cannot wedge future runs.
func (c *Cache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// ReleaseLock drops an advisory lock early.
func (c *Cache) ReleaseLock(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}
