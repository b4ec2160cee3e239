// Package store provides persistent geocode caches. Every backend honors
// put-if-absent: the first successful resolution for a key is kept forever.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/challenge-resolver/internal/config"
	"github.com/sells-group/challenge-resolver/internal/db"
	"github.com/sells-group/challenge-resolver/pkg/geocode"
)

// GeocodeCache is a geocode.Cache with a lifecycle.
type GeocodeCache interface {
	geocode.Cache
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the configured cache backend and migrates it.
func Open(ctx context.Context, cfg config.CacheConfig) (GeocodeCache, error) {
	var (
		c   GeocodeCache
		err error
	)
	switch cfg.Driver {
	case "", "memory":
		c = &MemoryStore{MemoryCache: geocode.NewMemoryCache()}
	case "sqlite":
		c, err = NewSQLite(cfg.SQLitePath)
	case "postgres":
		var pool db.Pool
		pool, err = db.Connect(ctx, cfg.DatabaseURL, db.PoolConfig{})
		if err == nil {
			c = NewPostgres(pool)
		}
	case "redis":
		c, err = NewRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, eris.Errorf("store: unknown cache driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// MemoryStore adapts geocode.MemoryCache to GeocodeCache. Nothing survives
// the process.
type MemoryStore struct {
	*geocode.MemoryCache
}

// Migrate is a no-op.
func (m *MemoryStore) Migrate(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
