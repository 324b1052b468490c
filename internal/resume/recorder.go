// Package resume keeps the records of the latest turn of each chat so a
// client can replay a stream it lost.
package resume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Recorder interface {
	// Reset drops what was recorded for the chat.
	Reset(ctx context.Context, chatID uuid.UUID) error
	Append(ctx context.Context, chatID uuid.UUID, record []byte) error
	Records(ctx context.Context, chatID uuid.UUID) ([][]byte, error)
}

type RedisRecorder struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Connect opens a client to the Redis server at url (redis://...).
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisRecorder(client *redis.Client, prefix string, ttl time.Duration) *RedisRecorder {
	return &RedisRecorder{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRecorder) key(chatID uuid.UUID) string {
	return fmt.Sprintf("%s:stream:%s", r.prefix, chatID)
}

func (r *RedisRecorder) Reset(ctx context.Context, chatID uuid.UUID) error {
	if err := r.client.Del(ctx, r.key(chatID)).Err(); err != nil {
		return fmt.Errorf("reset stream record: %w", err)
	}
	return nil
}

func (r *RedisRecorder) Append(ctx context.Context, chatID uuid.UUID, record []byte) error {
	key := r.key(chatID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, record)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append stream record: %w", err)
	}
	return nil
}

func (r *RedisRecorder) Records(ctx context.Context, chatID uuid.UUID) ([][]byte, error) {
	values, err := r.client.LRange(ctx, r.key(chatID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stream records: %w", err)
	}
	records := make([][]byte, 0, len(values))
	for _, v := range values {
		records = append(records, []byte(v))
	}
	return records, nil
}

// Noop records nothing; used when Redis is not configured.
type Noop struct{}

func (Noop) Reset(context.Context, uuid.UUID) error          { return nil }
func (Noop) Append(context.Context, uuid.UUID, []byte) error { return nil }
func (Noop) Records(context.Context, uuid.UUID) ([][]byte, error) {
	return nil, nil
}
