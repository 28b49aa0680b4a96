package cache

import (
	"context"
	"fmt"
)

// migrations is the ordered schema history. Versions are monotonically
// increasing and each batch is idempotent (CREATE IF NOT EXISTS), so running
// the full sequence against an already-migrated store is a no-op.
var migrations = []struct {
	version int
	sql     string
}{
	{1, `
CREATE TABLE IF NOT EXISTS snapshots (
    hash TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    final_url TEXT NOT NULL,
    mode TEXT NOT NULL,
    content_type TEXT,
    status_code INTEGER,
    fetched_at TEXT NOT NULL,
    expires_at TEXT,
    etag TEXT,
    last_modified TEXT,
    raw_bytes BLOB,
    raw_truncated INTEGER NOT NULL DEFAULT 0,
    title TEXT,
    markdown TEXT,
    text TEXT,
    links_json TEXT,
    extractor_name TEXT,
    extractor_version TEXT,
    siteconfig_id TEXT,
    extract_cfg_json TEXT,
    headers_json TEXT,
    fetch_ms INTEGER,
    extract_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at);
CREATE INDEX IF NOT EXISTS idx_snapshots_expires_at ON snapshots(expires_at);
`},
	{2, `
CREATE TABLE IF NOT EXISTS search_cache (
    key_hash TEXT PRIMARY KEY,
    query_json TEXT NOT NULL,
    response_json TEXT NOT NULL,
    fetched_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
`},
}

// migrate applies every migration newer than the recorded maximum, in order,
// recording each in _migrations.
func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS _migrations (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
)`); err != nil {
		return &Error{Op: "migrate", Err: err}
	}

	var current int
	if err := d.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM _migrations").Scan(&current); err != nil {
		return &Error{Op: "migrate", Err: err}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return &Error{Op: "migrate", Err: err}
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return &Error{Op: "migrate", Err: fmt.Errorf("version %d: %w", m.version, err)}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO _migrations (version, applied_at) VALUES (?, ?)",
			m.version, nowRFC3339()); err != nil {
			_ = tx.Rollback()
			return &Error{Op: "migrate", Err: fmt.Errorf("version %d: %w", m.version, err)}
		}
		if err := tx.Commit(); err != nil {
			return &Error{Op: "migrate", Err: fmt.Errorf("version %d: %w", m.version, err)}
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := d.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM _migrations").Scan(&v); err != nil {
		return 0, &Error{Op: "schema version", Err: err}
	}
	return v, nil
}
