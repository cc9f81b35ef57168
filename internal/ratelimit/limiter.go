// Package ratelimit bounds mutating requests per actor using a fixed window
// counter in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter enforces a per-actor, per-action request budget.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New builds a limiter. A nil client disables limiting (every request allowed).
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow consumes one token for (actorID, action). When denied it reports how
// long the caller should wait before retrying.
func (l *Limiter) Allow(ctx context.Context, actorID, action string) (bool, time.Duration, error) {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true, 0, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", actorID, action)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, err
		}
	}
	if count > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}
