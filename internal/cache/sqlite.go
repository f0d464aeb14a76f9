package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/litescript/ls-skywatch/internal/catalog"
)

// SQLiteStore persists sessions as JSON blobs in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// OpenSQLite opens (or creates) the session database at path.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open session cache: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
  key         TEXT PRIMARY KEY,
  night       TEXT NOT NULL,
  lat         REAL NOT NULL,
  lon         REAL NOT NULL,
  computed_at INTEGER NOT NULL, -- unix seconds
  payload     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_computed ON sessions(computed_at);
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("create session schema: %w", err)
	}
	return &SQLiteStore{db: db, opts: o}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key catalog.SessionKey) (catalog.Session, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM sessions WHERE key = ?", key.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Session{}, false, nil
	}
	if err != nil {
		return catalog.Session{}, false, fmt.Errorf("read session %s: %w", key, err)
	}

	var sess catalog.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return catalog.Session{}, false, fmt.Errorf("decode session %s: %w", key, err)
	}
	if s.opts.expired(sess.ComputedAt) {
		return catalog.Session{}, false, nil
	}
	return sess, true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, sess catalog.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := sess.Key()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions(key, night, lat, lon, computed_at, payload) VALUES(?,?,?,?,?,?)
ON CONFLICT(key) DO UPDATE SET computed_at = excluded.computed_at, payload = excluded.payload`,
		key.String(), key.Date, key.Lat, key.Lon, sess.ComputedAt.Unix(), payload)
	if err != nil {
		return fmt.Errorf("write session %s: %w", key, err)
	}
	return nil
}

// Purge deletes every entry older than the TTL and returns how many were removed.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	cutoff := s.opts.now().Add(-s.opts.ttl).Unix()
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE computed_at <= ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
