package assetcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS caches (
	name       TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	cache       TEXT NOT NULL,
	url         TEXT NOT NULL,
	status      INTEGER NOT NULL,
	status_text TEXT NOT NULL,
	header      TEXT NOT NULL,
	body        BLOB NOT NULL,
	stored_at   INTEGER NOT NULL,
	PRIMARY KEY (cache, url)
);
`

// SQLiteStorage persists caches in a single SQLite database file.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Open(ctx context.Context, name string) (Cache, error) {
	if err := ensureCache(ctx, s.db, name); err != nil {
		return nil, err
	}
	return &sqliteCache{db: s.db, name: name}, nil
}

func (s *SQLiteStorage) Has(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM caches WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup cache %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM caches ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE cache = ?`, name); err != nil {
		return false, fmt.Errorf("delete entries of %s: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM caches WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete cache %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensureCache(ctx context.Context, db execer, name string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO caches (name, created_at) VALUES (?, ?)`,
		name, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("open cache %s: %w", name, err)
	}
	return nil
}

type sqliteCache struct {
	db   *sql.DB
	name string
}

func (c *sqliteCache) Name() string {
	return c.name
}

func (c *sqliteCache) Match(ctx context.Context, url string) (*Entry, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT status, status_text, header, body, stored_at FROM entries WHERE cache = ? AND url = ?`,
		c.name, url)

	var (
		e        = &Entry{URL: url}
		header   string
		storedAt int64
	)
	if err := row.Scan(&e.Status, &e.StatusText, &header, &e.Body, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("match %s: %w", url, err)
	}
	if err := json.Unmarshal([]byte(header), &e.Header); err != nil {
		return nil, false, fmt.Errorf("decode headers of %s: %w", url, err)
	}
	e.StoredAt = time.Unix(0, storedAt).UTC()
	return e, true, nil
}

func (c *sqliteCache) Put(ctx context.Context, e *Entry) error {
	return c.PutAll(ctx, []*Entry{e})
}

func (c *sqliteCache) PutAll(ctx context.Context, entries []*Entry) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureCache(ctx, tx, c.name); err != nil {
		return err
	}
	for _, e := range entries {
		if err := putEntry(ctx, tx, c.name, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func putEntry(ctx context.Context, tx *sql.Tx, cache string, e *Entry) error {
	header := e.Header
	if header == nil {
		header = http.Header{}
	}
	encoded, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode headers of %s: %w", e.URL, err)
	}
	body := e.Body
	if body == nil {
		body = []byte{}
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO entries (cache, url, status, status_text, header, body, stored_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (cache, url) DO UPDATE SET
	status = excluded.status,
	status_text = excluded.status_text,
	header = excluded.header,
	body = excluded.body,
	stored_at = excluded.stored_at`,
		cache, e.URL, e.Status, e.StatusText, string(encoded), body, e.StoredAt.UnixNano())
	if err != nil {
		return fmt.Errorf("put %s: %w", e.URL, err)
	}
	return nil
}

func (c *sqliteCache) Keys(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT url FROM entries WHERE cache = ? ORDER BY rowid`, c.name)
	if err != nil {
		return nil, fmt.Errorf("list entries of %s: %w", c.name, err)
	}
	defer rows.Close()
	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (c *sqliteCache) Delete(ctx context.Context, url string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM entries WHERE cache = ? AND url = ?`, c.name, url)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", url, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
