// Package quota answers "may this user swipe right now". The matching engine
// only consults the Checker interface; tracking lives behind it.
package quota

import (
	"context"
	"fmt"
	"time"

	"go-match/internal/apperr"

	"github.com/redis/go-redis/v9"
)

type Checker interface {
	Allow(ctx context.Context, userID int) error
}

// Unlimited allows every swipe. Useful in tests and when no limit is set.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, int) error { return nil }

// RedisLimiter counts swipes per user per UTC day.
type RedisLimiter struct {
	cli   *redis.Client
	limit int
}

func NewRedisLimiter(cli *redis.Client, limit int) *RedisLimiter {
	return &RedisLimiter{cli: cli, limit: limit}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID int) error {
	if l.limit <= 0 {
		return nil
	}

	key := fmt.Sprintf("quota:swipes:%d:%s", userID, time.Now().UTC().Format("2006-01-02"))
	n, err := l.cli.Incr(ctx, key).Result()
	if err != nil {
		return apperr.Internal(err)
	}
	if n == 1 {
		// Key is day-scoped, the TTL just stops stale days piling up.
		l.cli.Expire(ctx, key, 48*time.Hour)
	}
	if n > int64(l.limit) {
		return apperr.ErrQuotaExceeded
	}
	return nil
}
