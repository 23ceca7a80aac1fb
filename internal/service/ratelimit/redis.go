package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts attempts in Redis (INCR + PEXPIRE), giving a shared window
// across all instances. The expiry is attached when a key is first seen in a
// window; the gap between INCR and PEXPIRE can, on a crash in between, leave a
// key without TTL, so the expiry is re-applied whenever none is set.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "optionpulse:ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Incr(ctx context.Context, key string, width time.Duration) (int64, time.Time, error) {
	k := s.prefix + ":" + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	count := incr.Val()
	remaining := ttl.Val()
	if remaining <= 0 {
		// first attempt in this window, or a key left without TTL
		remaining = width
		if err := s.client.PExpire(ctx, k, width).Err(); err != nil {
			return 0, time.Time{}, err
		}
	}
	return count, time.Now().Add(remaining), nil
}
