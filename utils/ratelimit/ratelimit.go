package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter is a distributed fixed-window rate limiter.
type Limiter interface {
	// Allow reports whether one more request under key fits into the
	// current window. Counting state is shared across nodes.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Remaining returns how many requests are left in the current window.
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RedisLimiter counts requests per time bucket with INCR + EXPIRE so the
// limit holds across all gateway nodes. With failOpen set, a Redis outage
// lets traffic through instead of rejecting it.
type RedisLimiter struct {
	client   *redis.Client
	logger   *zap.Logger
	failOpen bool
}

func NewRedisLimiter(client *redis.Client, logger *zap.Logger, failOpen bool) *RedisLimiter {
	return &RedisLimiter{client: client, logger: logger, failOpen: failOpen}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucketKey := bucketKey(key, time.Now(), window)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, bucketKey)
	// extra second so the key outlives its window under clock skew
	pipe.Expire(ctx, bucketKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		if l.failOpen {
			l.logger.Warn("限流计数失败，放行请求",
				zap.String("key", key),
				zap.Error(err),
			)
			return true, nil
		}
		return false, fmt.Errorf("限流计数失败: %w", err)
	}

	allowed := incr.Val() <= int64(limit)
	if !allowed {
		l.logger.Warn("触发限流",
			zap.String("key", key),
			zap.Int64("count", incr.Val()),
			zap.Int("limit", limit),
		)
	}
	return allowed, nil
}

func (l *RedisLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	count, err := l.client.Get(ctx, bucketKey(key, time.Now(), window)).Int64()
	if err != nil {
		if err == redis.Nil {
			return limit, nil
		}
		return 0, fmt.Errorf("读取限流计数失败: %w", err)
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// bucketKey 按窗口对齐时间桶，同一窗口内的请求落到同一个计数器
func bucketKey(key string, now time.Time, window time.Duration) string {
	bucket := now.Unix() / int64(window.Seconds())
	return fmt.Sprintf("ratelimit:%s:%d", key, bucket)
}
