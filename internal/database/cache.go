package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Cache key prefixes
	CacheKeySettings  = "docvault:settings"
	CacheKeyBlacklist = "docvault:blacklist:"

	// Cache TTLs
	CacheTTLSettings = 5 * time.Minute
)

// Cache wraps the Redis client for settings caching and JWT revocation
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Get retrieves a value from Redis and unmarshals it into dest
func (c *Cache) Get(key string, dest interface{}) error {
	ctx := context.Background()
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Set stores a value in Redis with TTL
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// Delete removes keys from Redis
func (c *Cache) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateSettings clears the settings cache
func (c *Cache) InvalidateSettings() {
	c.Delete(CacheKeySettings)
}

// BlacklistToken marks a JWT as revoked until it would expire anyway
func (c *Cache) BlacklistToken(token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx := context.Background()
	return c.rdb.Set(ctx, CacheKeyBlacklist+token, "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a JWT has been revoked via logout
func (c *Cache) IsTokenBlacklisted(token string) bool {
	ctx := context.Background()
	n, err := c.rdb.Exists(ctx, CacheKeyBlacklist+token).Result()
	return err == nil && n > 0
}
