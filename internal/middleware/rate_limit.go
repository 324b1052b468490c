package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Counter counts hits of a key within a fixed window.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter is a fixed-window Counter on INCR and EXPIRE.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

func (r *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	key = fmt.Sprintf("%s:rate:%s", r.prefix, key)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment rate counter: %w", err)
	}
	return incr.Val(), nil
}

// RateLimit returns middleware that allows limit requests per client IP and
// window under name. A nil counter disables it.
func RateLimit(counter Counter, name string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()

		// Check rate limit
		count, err := counter.Increment(c.Request.Context(), name+":"+clientIP, window)
		if err != nil {
			slog.Error("rate limit check failed", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}

		if count > limit {
			slog.Debug("rate limited", "client_ip", clientIP, "count", count, "limit", limit)
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "rate_limit:auth",
				"message": "Too many requests. Please wait a moment.",
			})
			return
		}

		c.Next()
	}
}
