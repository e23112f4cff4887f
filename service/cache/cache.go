// Package cache stores raw transaction records in Redis so repeated
// inspections of the same signature skip the RPC round trip.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dustwatch:raw:"

// NewClient parses redisURL, connects and verifies the connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// RedisCache keeps raw records as JSON with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached record for signature. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, signature string) (*outcome.RawTransaction, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+signature).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached record: %w", err)
	}

	var raw outcome.RawTransaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached record: %w", err)
	}
	return &raw, true, nil
}

// Set stores raw under signature.
func (c *RedisCache) Set(ctx context.Context, signature string, raw *outcome.RawTransaction) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return c.client.Set(ctx, keyPrefix+signature, data, c.ttl).Err()
}

// Delete evicts signature from the cache.
func (c *RedisCache) Delete(ctx context.Context, signature string) error {
	return c.client.Del(ctx, keyPrefix+signature).Err()
}
