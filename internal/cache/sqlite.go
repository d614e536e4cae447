package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS panel_cache (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_panel_cache_expires_at ON panel_cache(expires_at);
`

// SQLite is a Store persisted in a local SQLite file.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLite opens the database at dsn, configures WAL mode and creates the
// cache table.
func NewSQLite(ctx context.Context, dsn string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var val []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM panel_cache WHERE key = ? AND expires_at > ?`,
		key, s.now().UnixNano(),
	).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get cached value")
	}
	return val, true, nil
}

// Set implements Store.
func (s *SQLite) Set(ctx context.Context, key string, val []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO panel_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, val, s.now().Add(s.ttl).UnixNano(),
	)
	return eris.Wrap(err, "sqlite: set cached value")
}

// Prune deletes expired rows and returns how many were removed.
func (s *SQLite) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM panel_cache WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune cache")
	}
	return res.RowsAffected()
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
