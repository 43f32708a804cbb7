// Package ratelimit caps how often a key (a session or a client address) may act
// within a fixed time window.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Limiter interface {
	// Allow records one hit for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited allows everything. It is used when a limit is configured as 0.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// New picks the limiter for max hits per window: none when max is 0, Redis
// backed when rdb is set, in-memory otherwise.
func New(max int, per time.Duration, rdb *redis.Client, prefix string) Limiter {
	switch {
	case max <= 0:
		return Unlimited{}
	case rdb != nil:
		return NewRedisLimiter(rdb, prefix, max, per)
	default:
		return NewMemoryLimiter(max, per)
	}
}

// Check is Allow that fails open: a backend error is logged and the hit allowed.
func Check(ctx context.Context, l Limiter, key string) bool {
	ok, err := l.Allow(ctx, key)
	if err != nil {
		zap.L().Warn("ratelimit.backend_error", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}
