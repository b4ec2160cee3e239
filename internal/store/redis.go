package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/challenge-resolver/pkg/geocode"
)

const redisPingTimeout = 5 * time.Second

// RedisCache implements GeocodeCache with one SETNX key per query.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, prefix string) (*RedisCache, error) {
	if addr == "" {
		return nil, eris.New("redis: address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return NewRedisWithClient(client, prefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Migrate is a no-op; Redis needs no schema.
func (r *RedisCache) Migrate(context.Context) error { return nil }

// Close closes the client.
func (r *RedisCache) Close() error { return r.client.Close() }

// Get implements geocode.Cache.
func (r *RedisCache) Get(ctx context.Context, key string) (*geocode.CacheEntry, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "redis: get geocode")
	}
	var e geocode.CacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, eris.Wrap(err, "redis: decode geocode")
	}
	return &e, true, nil
}

// PutIfAbsent implements geocode.Cache. Entries never expire.
func (r *RedisCache) PutIfAbsent(ctx context.Context, e geocode.CacheEntry) (bool, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return false, eris.Wrap(err, "redis: encode geocode")
	}
	ok, err := r.client.SetNX(ctx, r.prefix+e.QueryKey, raw, 0).Result()
	if err != nil {
		return false, eris.Wrap(err, "redis: put geocode")
	}
	return ok, nil
}
