package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter stores documents as plain Redis string values. Used for
// server deployments that already run Redis for rate limiting.
type RedisAdapter struct {
	client *redis.Client
}

// NewRedisAdapter connects to Redis using a redis:// URL and verifies the
// connection with a ping.
func NewRedisAdapter(redisURL string) (*RedisAdapter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisAdapter{client: client}, nil
}

// Client exposes the underlying client so the rate limiter can share the
// same connection pool.
func (a *RedisAdapter) Client() *redis.Client {
	return a.client
}

// Close closes the Redis connection
func (a *RedisAdapter) Close() error {
	return a.client.Close()
}

// Get returns the document for key
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	doc, err := a.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read document: %w", err)
	}
	return doc, true, nil
}

// Set writes the document for key with no expiry
func (a *RedisAdapter) Set(ctx context.Context, key string, doc []byte) error {
	if err := a.client.Set(ctx, key, doc, 0).Err(); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Remove deletes the document for key
func (a *RedisAdapter) Remove(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}
