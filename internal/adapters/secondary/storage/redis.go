package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tiback/tiback-client/internal/core/ports"
)

// RedisKV stores keys as fields of a single Redis hash, so a daemon and its
// CLI invocations on different hosts can share one session.
type RedisKV struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ ports.KeyValueStore = (*RedisKV)(nil)

// RedisConfig configures the Redis session backend.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string
	Namespace string
	TTL       time.Duration
}

// NewRedisKV connects to Redis and verifies the connection.
func NewRedisKV(ctx context.Context, cfg RedisConfig) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: redis ping failed: %w", err)
	}
	return NewRedisKVWithClient(client, cfg.Prefix, cfg.Namespace, cfg.TTL), nil
}

// NewRedisKVWithClient wraps an existing client.
func NewRedisKVWithClient(client *redis.Client, prefix, namespace string, ttl time.Duration) *RedisKV {
	if prefix == "" {
		prefix = "tiback"
	}
	if namespace == "" {
		namespace = "default"
	}
	return &RedisKV{
		client: client,
		key:    prefix + ":session:" + namespace,
		ttl:    ttl,
	}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: redis hget %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key, key, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storage: redis hset %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.key, keys...).Err(); err != nil {
		return fmt.Errorf("storage: redis hdel: %w", err)
	}
	return nil
}

// Ping checks connectivity for the status server.
func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
