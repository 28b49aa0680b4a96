// Package cache implements the content-addressed snapshot store and the
// keyed search-result store on a single SQLite database.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

// Error wraps any storage failure so callers can tell "the cache is broken"
// apart from "the fetch failed".
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("cache %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// DB is the cache database handle.
//
// The pool is capped at one connection, so statements execute serialized on a
// single logical connection; WAL mode still lets external readers observe the
// file while a write is in progress.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path, applies the
// WAL/synchronous pragmas and runs any pending migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &Error{Op: "open", Err: err}
		}
	}
	dsn := "file:" + url.PathEscape(path) +
		"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	return open(dsn)
}

// OpenInMemory opens a throwaway in-memory database, used by tests.
func OpenInMemory() (*DB, error) {
	return open(":memory:")
}

func open(dsn string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	sqlDB.SetMaxOpenConns(1)

	d := &DB{db: sqlDB}
	if err := d.migrate(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return &Error{Op: "close", Err: err}
	}
	return nil
}

// nowRFC3339 formats the current UTC time the way every temporal column
// stores it. The fixed "Z" suffix keeps string comparison equivalent to time
// comparison.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
