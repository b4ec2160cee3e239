package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() }) //nolint:errcheck
	return NewRedisWithClient(client, "geocode:"), mr
}

func TestRedis_PutIfAbsent(t *testing.T) {
	c, mr := newTestRedisCache(t)
	exerciseCache(t, c)

	assert.True(t, mr.Exists("geocode:oslo, norway"))
	assert.Zero(t, mr.TTL("geocode:oslo, norway"))
}

func TestRedis_ConcurrentPuts(t *testing.T) {
	c, _ := newTestRedisCache(t)
	exerciseConcurrentPuts(t, c)
}

func TestRedis_CorruptEntry(t *testing.T) {
	c, mr := newTestRedisCache(t)
	require.NoError(t, mr.Set("geocode:bad", "{not json"))

	_, ok, err := c.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, ok)
}
