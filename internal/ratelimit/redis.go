package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter. INCR and EXPIRE NX run in one
// MULTI/EXEC, so a counter never outlives its window without a TTL.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	max    int64
	per    time.Duration
}

func NewRedisLimiter(rdb *redis.Client, prefix string, max int, per time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, max: int64(max), per: per}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.per)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ratelimit %s: %w", k, err)
	}
	return incr.Val() <= l.max, nil
}
