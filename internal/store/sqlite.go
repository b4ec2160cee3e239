package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/challenge-resolver/pkg/geocode"
)

// SQLiteCache implements GeocodeCache using modernc.org/sqlite.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteCache{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query_key   TEXT PRIMARY KEY,
	lat         REAL NOT NULL,
	lng         REAL NOT NULL,
	provider    TEXT NOT NULL,
	resolved_at TEXT NOT NULL
);
`

// Migrate creates the cache table.
func (s *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

// Get implements geocode.Cache.
func (s *SQLiteCache) Get(ctx context.Context, key string) (*geocode.CacheEntry, bool, error) {
	var (
		e          geocode.CacheEntry
		resolvedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT query_key, lat, lng, provider, resolved_at FROM geocode_cache WHERE query_key = ?`, key,
	).Scan(&e.QueryKey, &e.Lat, &e.Lng, &e.Provider, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get geocode")
	}
	e.ResolvedAt, err = time.Parse(time.RFC3339Nano, resolvedAt)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: parse resolved_at")
	}
	return &e, true, nil
}

// PutIfAbsent implements geocode.Cache.
func (s *SQLiteCache) PutIfAbsent(ctx context.Context, e geocode.CacheEntry) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO geocode_cache (query_key, lat, lng, provider, resolved_at) VALUES (?, ?, ?, ?, ?)`,
		e.QueryKey, e.Lat, e.Lng, e.Provider, e.ResolvedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: put geocode")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}
