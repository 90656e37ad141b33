package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Redis is a Redis-backed bundle store (Pro tier). Bundles survive process
// restarts and are shared across instances.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg domain.CacheConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func redisKey(tenantID, key string) string {
	return fmt.Sprintf("harrier:%s:bundle:%s", tenantID, key)
}

// Put stores a bundle under the tenant-scoped key, without expiry.
func (r *Redis) Put(ctx context.Context, tenantID, key string, bundle *domain.ModelBundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(tenantID, key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the bundle stored under the key, or ErrNotFound.
func (r *Redis) Get(ctx context.Context, tenantID, key string) (*domain.ModelBundle, error) {
	data, err := r.client.Get(ctx, redisKey(tenantID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: bundle %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var bundle domain.ModelBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &bundle, nil
}

// Exists reports whether a bundle is stored under the key.
func (r *Redis) Exists(ctx context.Context, tenantID, key string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKey(tenantID, key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
