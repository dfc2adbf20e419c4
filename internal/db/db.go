// Package db defines the key-value storage contract backing the persistent
// embedding cache and the token budget counters.
package db

import (
	"context"
	"time"
)

// Store is the full storage contract. Consumers should depend on the subset
// they use (ISP), not on this interface.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
