// Package ratelimit counts requests per client in fixed windows kept in
// Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"silvess-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisTimeout = 500 * time.Millisecond

type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// New allows limit requests per window for every key. A nil client or a
// non-positive limit gives a nil Limiter, which lets everything through.
func New(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	if client == nil || limit <= 0 {
		return nil
	}
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

// Allow counts one hit for key and reports whether it is within the limit,
// with the hits left in the current window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int, error) {
	if l == nil {
		return true, 0, nil
	}

	slot := l.now().UnixNano() / int64(l.window)
	rk := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("rate limit %s: %w", rk, err)
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, nil
}

// Middleware limits requests by client IP. Redis failures let the request
// through.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), redisTimeout)
		defer cancel()

		ok, remaining, err := l.Allow(ctx, c.IP())
		if err != nil {
			logger.FromCtx(c).Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(l.window.Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}

// Connect opens a client for addr and checks it answers. An empty addr
// returns nil, nil.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
