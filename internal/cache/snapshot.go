package cache

import (
	"context"
	"database/sql"
	"time"
)

// Snapshot is one cached fetch+extraction result, keyed by its
// content-addressed hash.
type Snapshot struct {
	Hash        string
	URL         string
	FinalURL    string
	Mode        string
	ContentType *string
	StatusCode  *int64

	FetchedAt    string
	ExpiresAt    *string
	ETag         *string
	LastModified *string

	RawBytes     []byte
	RawTruncated bool
	Title        *string
	Markdown     *string
	Text         *string
	LinksJSON    *string

	ExtractorName    *string
	ExtractorVersion *string
	SiteConfigID     *string
	ExtractCfgJSON   *string

	HeadersJSON *string
	FetchMS     *int64
	ExtractMS   *int64
}

const snapshotColumns = `hash, url, final_url, mode, content_type, status_code,
    fetched_at, expires_at, etag, last_modified,
    raw_bytes, raw_truncated, title, markdown, text, links_json,
    extractor_name, extractor_version, siteconfig_id, extract_cfg_json,
    headers_json, fetch_ms, extract_ms`

// UpsertSnapshot inserts or wholly replaces the snapshot keyed by its hash.
// Semantics are last-write-wins: every field is replaced, never merged, and
// the statement is a single atomic write.
func (d *DB) UpsertSnapshot(ctx context.Context, s *Snapshot) error {
	_, err := d.db.ExecContext(ctx, `
INSERT INTO snapshots (`+snapshotColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET
    url = excluded.url,
    final_url = excluded.final_url,
    mode = excluded.mode,
    content_type = excluded.content_type,
    status_code = excluded.status_code,
    fetched_at = excluded.fetched_at,
    expires_at = excluded.expires_at,
    etag = excluded.etag,
    last_modified = excluded.last_modified,
    raw_bytes = excluded.raw_bytes,
    raw_truncated = excluded.raw_truncated,
    title = excluded.title,
    markdown = excluded.markdown,
    text = excluded.text,
    links_json = excluded.links_json,
    extractor_name = excluded.extractor_name,
    extractor_version = excluded.extractor_version,
    siteconfig_id = excluded.siteconfig_id,
    extract_cfg_json = excluded.extract_cfg_json,
    headers_json = excluded.headers_json,
    fetch_ms = excluded.fetch_ms,
    extract_ms = excluded.extract_ms`,
		s.Hash, s.URL, s.FinalURL, s.Mode, s.ContentType, s.StatusCode,
		s.FetchedAt, s.ExpiresAt, s.ETag, s.LastModified,
		s.RawBytes, boolToInt(s.RawTruncated), s.Title, s.Markdown, s.Text, s.LinksJSON,
		s.ExtractorName, s.ExtractorVersion, s.SiteConfigID, s.ExtractCfgJSON,
		s.HeadersJSON, s.FetchMS, s.ExtractMS,
	)
	if err != nil {
		return &Error{Op: "upsert snapshot", Err: err}
	}
	return nil
}

// GetSnapshot returns the snapshot for hash, or nil when absent. Absence is
// not an error at this layer.
func (d *DB) GetSnapshot(ctx context.Context, hash string) (*Snapshot, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT "+snapshotColumns+" FROM snapshots WHERE hash = ?", hash)

	var (
		s            Snapshot
		contentType  sql.NullString
		statusCode   sql.NullInt64
		expiresAt    sql.NullString
		etag         sql.NullString
		lastModified sql.NullString
		truncated    int64
		title        sql.NullString
		markdown     sql.NullString
		text         sql.NullString
		linksJSON    sql.NullString
		extName      sql.NullString
		extVersion   sql.NullString
		siteConfigID sql.NullString
		extCfgJSON   sql.NullString
		headersJSON  sql.NullString
		fetchMS      sql.NullInt64
		extractMS    sql.NullInt64
	)
	err := row.Scan(
		&s.Hash, &s.URL, &s.FinalURL, &s.Mode, &contentType, &statusCode,
		&s.FetchedAt, &expiresAt, &etag, &lastModified,
		&s.RawBytes, &truncated, &title, &markdown, &text, &linksJSON,
		&extName, &extVersion, &siteConfigID, &extCfgJSON,
		&headersJSON, &fetchMS, &extractMS,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "get snapshot", Err: err}
	}

	s.ContentType = nullString(contentType)
	s.StatusCode = nullInt(statusCode)
	s.ExpiresAt = nullString(expiresAt)
	s.ETag = nullString(etag)
	s.LastModified = nullString(lastModified)
	s.RawTruncated = truncated != 0
	s.Title = nullString(title)
	s.Markdown = nullString(markdown)
	s.Text = nullString(text)
	s.LinksJSON = nullString(linksJSON)
	s.ExtractorName = nullString(extName)
	s.ExtractorVersion = nullString(extVersion)
	s.SiteConfigID = nullString(siteConfigID)
	s.ExtractCfgJSON = nullString(extCfgJSON)
	s.HeadersJSON = nullString(headersJSON)
	s.FetchMS = nullInt(fetchMS)
	s.ExtractMS = nullInt(extractMS)
	return &s, nil
}

// IsSnapshotFresh reports whether the row exists and either has no TTL or has
// not yet expired.
func (d *DB) IsSnapshotFresh(ctx context.Context, hash string) (bool, error) {
	var fresh bool
	err := d.db.QueryRowContext(ctx, `
SELECT EXISTS(
    SELECT 1 FROM snapshots
    WHERE hash = ? AND (expires_at IS NULL OR expires_at > ?)
)`, hash, nowRFC3339()).Scan(&fresh)
	if err != nil {
		return false, &Error{Op: "snapshot freshness", Err: err}
	}
	return fresh, nil
}

// PurgeExpiredSnapshots deletes rows whose expires_at is set and in the past.
func (d *DB) PurgeExpiredSnapshots(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE expires_at IS NOT NULL AND expires_at < ?",
		nowRFC3339())
	if err != nil {
		return 0, &Error{Op: "purge expired snapshots", Err: err}
	}
	return rowsAffected(res, "purge expired snapshots")
}

// PurgeSnapshotsByDomain deletes rows whose stored URL contains the given
// substring. This is a coarse match, not a parsed-hostname match: the
// substring can also hit a path segment. Accepted policy.
func (d *DB) PurgeSnapshotsByDomain(ctx context.Context, domain string) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE url LIKE ?", "%"+domain+"%")
	if err != nil {
		return 0, &Error{Op: "purge snapshots by domain", Err: err}
	}
	return rowsAffected(res, "purge snapshots by domain")
}

// PurgeLRUSnapshots deletes the oldest rows by fetched_at until at most
// maxEntries remain. A no-op when already at or below the ceiling.
func (d *DB) PurgeLRUSnapshots(ctx context.Context, maxEntries int64) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		return 0, &Error{Op: "purge lru snapshots", Err: err}
	}
	if count <= maxEntries {
		return 0, nil
	}
	res, err := d.db.ExecContext(ctx, `
DELETE FROM snapshots WHERE hash IN (
    SELECT hash FROM snapshots ORDER BY fetched_at ASC LIMIT ?
)`, count-maxEntries)
	if err != nil {
		return 0, &Error{Op: "purge lru snapshots", Err: err}
	}
	return rowsAffected(res, "purge lru snapshots")
}

// CountSnapshots returns the current row count.
func (d *DB) CountSnapshots(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		return 0, &Error{Op: "count snapshots", Err: err}
	}
	return count, nil
}

// ExpiresAtFrom renders a TTL as an expires_at column value; zero means no TTL.
func ExpiresAtFrom(now time.Time, ttl time.Duration) *string {
	if ttl <= 0 {
		return nil
	}
	v := now.UTC().Add(ttl).Format(time.RFC3339)
	return &v
}

func rowsAffected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &Error{Op: op, Err: err}
	}
	return n, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
