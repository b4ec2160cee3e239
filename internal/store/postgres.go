package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/challenge-resolver/internal/db"
	"github.com/sells-group/challenge-resolver/pkg/geocode"
)

// PostgresCache implements GeocodeCache on a pgx pool.
type PostgresCache struct {
	pool db.Pool
}

// NewPostgres wraps pool. The cache owns the pool and closes it on Close.
func NewPostgres(pool db.Pool) *PostgresCache {
	return &PostgresCache{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query_key   TEXT PRIMARY KEY,
	lat         DOUBLE PRECISION NOT NULL,
	lng         DOUBLE PRECISION NOT NULL,
	provider    TEXT NOT NULL,
	resolved_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate creates the cache table.
func (p *PostgresCache) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close closes the pool.
func (p *PostgresCache) Close() error {
	p.pool.Close()
	return nil
}

// Get implements geocode.Cache.
func (p *PostgresCache) Get(ctx context.Context, key string) (*geocode.CacheEntry, bool, error) {
	var e geocode.CacheEntry
	err := p.pool.QueryRow(ctx,
		`SELECT query_key, lat, lng, provider, resolved_at FROM geocode_cache WHERE query_key = $1`, key,
	).Scan(&e.QueryKey, &e.Lat, &e.Lng, &e.Provider, &e.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: get geocode")
	}
	return &e, true, nil
}

// PutIfAbsent implements geocode.Cache.
func (p *PostgresCache) PutIfAbsent(ctx context.Context, e geocode.CacheEntry) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO geocode_cache (query_key, lat, lng, provider, resolved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (query_key) DO NOTHING`,
		e.QueryKey, e.Lat, e.Lng, e.Provider, e.ResolvedAt,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: put geocode")
	}
	return tag.RowsAffected() == 1, nil
}
