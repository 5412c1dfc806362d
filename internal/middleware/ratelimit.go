package middleware

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Counter increments a windowed counter and returns the new value
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter keeps fixed-window counters in Redis
type RedisCounter struct {
	rdb *redis.Client
}

// NewRedisCounter creates a counter over rdb
func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

// Incr increments key and refreshes its expiry
func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimit limits each client IP to perMinute requests per calendar minute.
// A non-positive limit disables the check; counter failures let the request through.
func RateLimit(counter Counter, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if perMinute <= 0 || counter == nil {
			return c.Next()
		}

		now := time.Now()
		window := now.Truncate(time.Minute)
		key := fmt.Sprintf("rl:ip:%s:minute:%d", c.IP(), window.Unix())

		count, err := counter.Incr(c.UserContext(), key, time.Minute)
		if err != nil {
			log.Printf("Rate limit check failed: %v", err)
			return c.Next()
		}

		reset := window.Add(time.Minute)
		remaining := int64(perMinute) - count
		if remaining < 0 {
			remaining = 0
		}

		c.Set("X-RateLimit-Limit-Minute", strconv.Itoa(perMinute))
		c.Set("X-RateLimit-Remaining-Minute", strconv.FormatInt(remaining, 10))
		c.Set("X-RateLimit-Reset-Minute", strconv.FormatInt(reset.Unix(), 10))

		if count > int64(perMinute) {
			retryAfter := int64(reset.Sub(now).Seconds()) + 1
			c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests per minute",
				"limit_type":  "per_minute",
				"limit":       perMinute,
				"retry_after": retryAfter,
			})
		}

		return c.Next()
	}
}
