package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists cache entries in a local sqlite database so a warm
// cache survives process restarts.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS result_cache (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache (expires_at);
`

// OpenSQLiteStore opens (and if needed creates) the cache database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open cache database")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate cache schema")
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns all non-expired entries and prunes expired rows.
func (s *SQLiteStore) Load(ctx context.Context) ([]PersistedEntry, error) {
	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM result_cache WHERE expires_at <= ?", now); err != nil {
		return nil, errors.Wrap(err, "prune expired cache rows")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT key, value, expires_at FROM result_cache")
	if err != nil {
		return nil, errors.Wrap(err, "query cache rows")
	}
	defer rows.Close()

	var entries []PersistedEntry
	for rows.Next() {
		var e PersistedEntry
		var expiresAt int64
		if err := rows.Scan(&e.Key, &e.Value, &expiresAt); err != nil {
			return nil, errors.Wrap(err, "scan cache row")
		}
		e.ExpiresAt = time.Unix(expiresAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Put upserts an entry.
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO result_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt.Unix())
	return errors.Wrap(err, "upsert cache row")
}

// Delete removes an entry.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM result_cache WHERE key = ?", key)
	return errors.Wrap(err, "delete cache row")
}

// Clear removes all entries.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM result_cache")
	return errors.Wrap(err, "clear cache rows")
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
