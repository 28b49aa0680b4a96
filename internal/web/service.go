// Package web composes the fetch pipeline, the extractor capability and the
// snapshot cache into the open and batch-open operations.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/webcache-io/webcache/internal/cache"
	"github.com/webcache-io/webcache/internal/extract"
	"github.com/webcache-io/webcache/internal/fetch"
)

// Mode selects what the snapshot stores.
type Mode string

// Snapshot modes.
const (
	ModeRaw      Mode = "raw"
	ModeReadable Mode = "readable"
)

// InputError reports a request rejected before any I/O.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return "invalid input: " + e.Msg }

// Fetcher is the slice of fetch.Client the service needs; tests substitute it.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error)
}

// Outcome classifies how one URL was served.
type Outcome string

// Outcomes.
const (
	OutcomeFetched Outcome = "success"
	OutcomeCached  Outcome = "cached"
	OutcomeFailed  Outcome = "failed"
)

// Options tunes the service.
type Options struct {
	// DefaultTTL sets expires_at on new snapshots; zero stores no TTL.
	DefaultTTL time.Duration

	// MaxBytes mirrors the fetch ceiling, used to flag raw_truncated.
	MaxBytes int64

	// MaxEntries bounds the snapshot store: after each write-through the
	// oldest rows beyond this count are purged. Zero means unbounded.
	MaxEntries int64
}

// Service is the cache-through open operation.
type Service struct {
	db        *cache.DB
	fetcher   Fetcher
	extractor extract.Extractor
	opts      Options
	logger    *zap.Logger
}

// NewService wires the service.
func NewService(db *cache.DB, fetcher Fetcher, extractor extract.Extractor, opts Options, logger *zap.Logger) *Service {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 5 * 1024 * 1024
	}
	return &Service{
		db:        db,
		fetcher:   fetcher,
		extractor: extractor,
		opts:      opts,
		logger:    logger,
	}
}

// OpenRequest asks for one URL, served from cache when possible.
type OpenRequest struct {
	URL          string
	Mode         Mode
	ForceRefresh bool
	Accept       string
	Extract      extract.Config
}

// OpenResult reports how the URL was served and the stored snapshot.
type OpenResult struct {
	Outcome  Outcome
	Snapshot *cache.Snapshot
}

// Open serves one URL: cache read-through unless ForceRefresh, then fetch,
// extract (mode readable) and write-through. ForceRefresh bypasses the cache
// read, never the write.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*OpenResult, error) {
	if req.URL == "" {
		return nil, &InputError{Msg: "url cannot be empty"}
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeReadable
	}
	switch mode {
	case ModeRaw, ModeReadable:
	case "rendered":
		return nil, fetch.ErrRenderDisabled
	default:
		return nil, &InputError{Msg: fmt.Sprintf("unsupported mode: %s", mode)}
	}

	key := cache.Key(req.URL, req.Accept, string(mode))

	if !req.ForceRefresh {
		fresh, err := s.db.IsSnapshotFresh(ctx, key)
		if err != nil {
			return nil, err
		}
		if fresh {
			snap, err := s.db.GetSnapshot(ctx, key)
			if err != nil {
				return nil, err
			}
			if snap != nil {
				TotalCacheHits.Inc()
				s.logger.Debug("cache hit", zap.String("url", req.URL), zap.String("hash", key))
				return &OpenResult{Outcome: OutcomeCached, Snapshot: snap}, nil
			}
		}
	}
	TotalCacheMisses.Inc()

	resp, err := s.fetcher.Fetch(ctx, fetch.Request{URL: req.URL, Accept: req.Accept})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	snap := &cache.Snapshot{
		Hash:      key,
		URL:       resp.URL,
		FinalURL:  resp.FinalURL,
		Mode:      string(mode),
		FetchedAt: now.UTC().Format(time.RFC3339),
		ExpiresAt: cache.ExpiresAtFrom(now, s.opts.DefaultTTL),
	}
	status := int64(resp.StatusCode)
	snap.StatusCode = &status
	if ct := resp.ContentType; ct != "" {
		snap.ContentType = &ct
	}
	if etag := resp.Headers.Get("Etag"); etag != "" {
		snap.ETag = &etag
	}
	if lm := resp.Headers.Get("Last-Modified"); lm != "" {
		snap.LastModified = &lm
	}
	if headersJSON, err := json.Marshal(resp.Headers); err == nil {
		v := string(headersJSON)
		snap.HeadersJSON = &v
	}
	fetchMS := resp.Duration.Milliseconds()
	snap.FetchMS = &fetchMS

	switch mode {
	case ModeRaw:
		snap.RawBytes = resp.Body
		snap.RawTruncated = int64(len(resp.Body)) >= s.opts.MaxBytes
	case ModeReadable:
		if err := s.extractInto(snap, resp, req.Extract); err != nil {
			return nil, err
		}
	}

	if err := s.db.UpsertSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	if s.opts.MaxEntries > 0 {
		purged, err := s.db.PurgeLRUSnapshots(ctx, s.opts.MaxEntries)
		if err != nil {
			// The snapshot is already stored; a failed trim is not a failed open.
			s.logger.Warn("lru purge failed", zap.Error(err))
		} else if purged > 0 {
			s.logger.Debug("lru purge", zap.Int64("purged", purged))
		}
	}
	return &OpenResult{Outcome: OutcomeFetched, Snapshot: snap}, nil
}

func (s *Service) extractInto(snap *cache.Snapshot, resp *fetch.Response, cfg extract.Config) error {
	base, err := url.Parse(resp.FinalURL)
	if err != nil {
		base = nil
	}

	start := time.Now()
	result, err := s.extractor.Extract(string(resp.Body), base, cfg)
	if err != nil {
		return err
	}
	extractMS := time.Since(start).Milliseconds()

	if result.Title != "" {
		snap.Title = &result.Title
	}
	snap.Markdown = &result.Markdown
	if linksJSON, err := json.Marshal(result.Links); err == nil {
		v := string(linksJSON)
		snap.LinksJSON = &v
	}
	name := s.extractor.Name()
	snap.ExtractorName = &name
	snap.ExtractorVersion = &result.Version
	if cfgJSON, err := json.Marshal(cfg); err == nil && cfg != (extract.Config{}) {
		v := string(cfgJSON)
		snap.ExtractCfgJSON = &v
	}
	snap.ExtractMS = &extractMS
	return nil
}
