package cache

import (
	"context"
	"database/sql"
	"time"
)

// SearchMeta is the bookkeeping stored alongside a cached search response.
type SearchMeta struct {
	QueryJSON string
	FetchedAt string
	ExpiresAt string
}

// PutSearch inserts or wholly replaces a cached search response. Every entry
// carries an explicit TTL.
func (d *DB) PutSearch(ctx context.Context, keyHash, queryJSON, responseJSON string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := d.db.ExecContext(ctx, `
INSERT INTO search_cache (key_hash, query_json, response_json, fetched_at, expires_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(key_hash) DO UPDATE SET
    query_json = excluded.query_json,
    response_json = excluded.response_json,
    fetched_at = excluded.fetched_at,
    expires_at = excluded.expires_at`,
		keyHash, queryJSON, responseJSON,
		now.Format(time.RFC3339), now.Add(ttl).Format(time.RFC3339))
	if err != nil {
		return &Error{Op: "put search", Err: err}
	}
	return nil
}

// GetSearch returns the cached response JSON for keyHash, or "" and false
// when absent.
func (d *DB) GetSearch(ctx context.Context, keyHash string) (string, bool, error) {
	var response string
	err := d.db.QueryRowContext(ctx,
		"SELECT response_json FROM search_cache WHERE key_hash = ?", keyHash).Scan(&response)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &Error{Op: "get search", Err: err}
	}
	return response, true, nil
}

// GetSearchMeta returns the metadata for keyHash, or nil when absent.
func (d *DB) GetSearchMeta(ctx context.Context, keyHash string) (*SearchMeta, error) {
	var meta SearchMeta
	err := d.db.QueryRowContext(ctx,
		"SELECT query_json, fetched_at, expires_at FROM search_cache WHERE key_hash = ?",
		keyHash).Scan(&meta.QueryJSON, &meta.FetchedAt, &meta.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "get search meta", Err: err}
	}
	return &meta, nil
}

// IsSearchFresh reports whether the entry exists and has not expired.
func (d *DB) IsSearchFresh(ctx context.Context, keyHash string) (bool, error) {
	var fresh bool
	err := d.db.QueryRowContext(ctx, `
SELECT EXISTS(
    SELECT 1 FROM search_cache WHERE key_hash = ? AND expires_at > ?
)`, keyHash, nowRFC3339()).Scan(&fresh)
	if err != nil {
		return false, &Error{Op: "search freshness", Err: err}
	}
	return fresh, nil
}

// PurgeExpiredSearch deletes entries past their TTL.
func (d *DB) PurgeExpiredSearch(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM search_cache WHERE expires_at < ?", nowRFC3339())
	if err != nil {
		return 0, &Error{Op: "purge expired search", Err: err}
	}
	return rowsAffected(res, "purge expired search")
}
