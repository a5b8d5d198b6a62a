package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease grants short-lived exclusive ownership of a lead to one dispatch
// worker. The store-level conditional claim remains the hard guarantee; the
// lease only spares concurrent sweeps redundant workflow calls.
type Lease interface {
	Acquire(ctx context.Context, leadID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, leadID uuid.UUID) error
}

// RedisLease implements Lease on a shared Redis instance.
type RedisLease struct {
	client *redis.Client
}

// NewRedisLease creates a lease store from a Redis URL. An empty URL returns
// a nil lease, which the coordinator treats as "always acquired".
func NewRedisLease(redisURL string) (*RedisLease, error) {
	if redisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisLease{client: redis.NewClient(opt)}, nil
}

func leaseKey(leadID uuid.UUID) string {
	return "dispatch:lease:" + leadID.String()
}

// Acquire takes the lease if it is free. It never blocks waiting for a
// holder to finish.
func (l *RedisLease) Acquire(ctx context.Context, leadID uuid.UUID, ttl time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	return l.client.SetNX(ctx, leaseKey(leadID), "1", ttl).Result()
}

// Release frees the lease early. Expiry handles the crash case.
func (l *RedisLease) Release(ctx context.Context, leadID uuid.UUID) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Del(ctx, leaseKey(leadID)).Err()
}

// Close releases the underlying Redis connection.
func (l *RedisLease) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
