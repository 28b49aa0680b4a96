package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/webcache-io/webcache/internal/cache"
	"github.com/webcache-io/webcache/internal/extract"
	"github.com/webcache-io/webcache/internal/fetch"
	"github.com/webcache-io/webcache/internal/search"
	"github.com/webcache-io/webcache/internal/web"
)

type openRequest struct {
	URL          string `json:"url"`
	Mode         string `json:"mode"`
	ForceRefresh bool   `json:"force_refresh"`
	Accept       string `json:"accept"`

	CharThreshold    int `json:"char_threshold"`
	MaxTopCandidates int `json:"max_top_candidates"`
}

type batchRequest struct {
	URLs           []string `json:"urls"`
	Mode           string   `json:"mode"`
	MaxConcurrency int      `json:"max_concurrency"`
	FailFast       bool     `json:"fail_fast"`
	ForceRefresh   bool     `json:"force_refresh"`
	Accept         string   `json:"accept"`
}

type purgeRequest struct {
	Strategy   string `json:"strategy"`
	Domain     string `json:"domain"`
	MaxEntries int64  `json:"max_entries"`
}

type batchItemView struct {
	URL      string        `json:"url"`
	Status   string        `json:"status"`
	Snapshot *snapshotView `json:"snapshot,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type batchView struct {
	Items   []batchItemView `json:"items"`
	Summary batchSummary    `json:"summary"`
}

type batchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Cached    int `json:"cached"`
	Failed    int `json:"failed"`
}

// snapshotView is the wire shape of a stored snapshot. RawBytes rides as
// base64, JSON columns ride verbatim.
type snapshotView struct {
	Hash         string          `json:"hash"`
	URL          string          `json:"url"`
	FinalURL     string          `json:"final_url"`
	Mode         string          `json:"mode"`
	ContentType  *string         `json:"content_type,omitempty"`
	StatusCode   *int64          `json:"status_code,omitempty"`
	FetchedAt    string          `json:"fetched_at"`
	ExpiresAt    *string         `json:"expires_at,omitempty"`
	ETag         *string         `json:"etag,omitempty"`
	LastModified *string         `json:"last_modified,omitempty"`
	RawBytes     []byte          `json:"raw_bytes,omitempty"`
	RawTruncated bool            `json:"raw_truncated,omitempty"`
	Title        *string         `json:"title,omitempty"`
	Markdown     *string         `json:"markdown,omitempty"`
	Links        json.RawMessage `json:"links,omitempty"`
	Extractor    *string         `json:"extractor,omitempty"`
	FetchMS      *int64          `json:"fetch_ms,omitempty"`
	ExtractMS    *int64          `json:"extract_ms,omitempty"`
}

func toSnapshotView(s *cache.Snapshot) *snapshotView {
	if s == nil {
		return nil
	}
	v := &snapshotView{
		Hash:         s.Hash,
		URL:          s.URL,
		FinalURL:     s.FinalURL,
		Mode:         s.Mode,
		ContentType:  s.ContentType,
		StatusCode:   s.StatusCode,
		FetchedAt:    s.FetchedAt,
		ExpiresAt:    s.ExpiresAt,
		ETag:         s.ETag,
		LastModified: s.LastModified,
		RawBytes:     s.RawBytes,
		RawTruncated: s.RawTruncated,
		Title:        s.Title,
		Markdown:     s.Markdown,
		Extractor:    s.ExtractorName,
		FetchMS:      s.FetchMS,
		ExtractMS:    s.ExtractMS,
	}
	if s.LinksJSON != nil {
		v.Links = json.RawMessage(*s.LinksJSON)
	}
	return v
}

func (s *Server) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	result, err := s.service.Open(r.Context(), web.OpenRequest{
		URL:          req.URL,
		Mode:         web.Mode(req.Mode),
		ForceRefresh: req.ForceRefresh,
		Accept:       req.Accept,
		Extract: extract.Config{
			CharThreshold:    req.CharThreshold,
			MaxTopCandidates: req.MaxTopCandidates,
		},
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"outcome":  string(result.Outcome),
		"snapshot": toSnapshotView(result.Snapshot),
	})
}

func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	result, err := s.service.Batch(r.Context(), web.BatchRequest{
		URLs:           req.URLs,
		Mode:           web.Mode(req.Mode),
		MaxConcurrency: req.MaxConcurrency,
		FailFast:       req.FailFast,
		ForceRefresh:   req.ForceRefresh,
		Accept:         req.Accept,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	view := batchView{
		Items: make([]batchItemView, 0, len(result.Items)),
		Summary: batchSummary{
			Total:     result.Summary.Total,
			Succeeded: result.Summary.Succeeded,
			Cached:    result.Summary.Cached,
			Failed:    result.Summary.Failed,
		},
	}
	for _, item := range result.Items {
		iv := batchItemView{URL: item.URL, Status: string(item.Status), Error: item.ErrorMsg}
		if item.Result != nil {
			iv.Snapshot = toSnapshotView(item.Result.Snapshot)
		}
		view.Items = append(view.Items, iv)
	}

	status := http.StatusOK
	if view.Summary.Failed > 0 {
		status = http.StatusMultiStatus
	}
	s.writeJSON(w, status, view)
}

type extractRequest struct {
	HTML    string `json:"html"`
	BaseURL string `json:"base_url"`

	CharThreshold    int `json:"char_threshold"`
	MaxTopCandidates int `json:"max_top_candidates"`
}

type extractResponse struct {
	Title     string         `json:"title"`
	Markdown  string         `json:"markdown"`
	Links     []extract.Link `json:"links"`
	Extractor string         `json:"extractor"`
	Version   string         `json:"version"`
}

// extract runs the readable extractor over caller-provided HTML. No network
// I/O and no cache write: the input never came from a fetch.
func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.HTML == "" {
		s.writeError(w, http.StatusBadRequest, "html cannot be empty")
		return
	}

	var base *url.URL
	if req.BaseURL != "" {
		var err error
		base, err = url.Parse(req.BaseURL)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid base_url")
			return
		}
	}

	result, err := s.extractor.Extract(req.HTML, base, extract.Config{
		CharThreshold:    req.CharThreshold,
		MaxTopCandidates: req.MaxTopCandidates,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, extractResponse{
		Title:     result.Title,
		Markdown:  result.Markdown,
		Links:     result.Links,
		Extractor: s.extractor.Name(),
		Version:   result.Version,
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var q search.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if q.Q == "" {
		s.writeError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	resp, err := s.searcher.Search(r.Context(), q)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	snap, err := s.db.GetSnapshot(r.Context(), hash)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if snap == nil {
		s.writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	s.writeJSON(w, http.StatusOK, toSnapshotView(snap))
}

func (s *Server) purge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var (
		purged int64
		err    error
	)
	switch req.Strategy {
	case "expired":
		purged, err = s.db.PurgeExpiredSnapshots(r.Context())
	case "domain":
		if req.Domain == "" {
			s.writeError(w, http.StatusBadRequest, "domain cannot be empty")
			return
		}
		purged, err = s.db.PurgeSnapshotsByDomain(r.Context(), req.Domain)
	case "lru":
		if req.MaxEntries <= 0 {
			s.writeError(w, http.StatusBadRequest, "max_entries must be at least 1")
			return
		}
		purged, err = s.db.PurgeLRUSnapshots(r.Context(), req.MaxEntries)
	default:
		s.writeError(w, http.StatusBadRequest, "strategy must be one of expired, domain, lru")
		return
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"purged": purged})
}

// writeFailure maps a service error to its HTTP status.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func statusForError(err error) int {
	var (
		input       *web.InputError
		invalidURL  *fetch.InvalidURLError
		badScheme   *fetch.UnsupportedSchemeError
		tooLarge    *fetch.TooLargeError
		timeout     *fetch.TimeoutError
		httpStatus  *fetch.HTTPStatusError
		dns         *fetch.DNSError
		robotsFetch *fetch.RobotsFetchError
		auth        *search.AuthError
		rateLimited *search.RateLimitedError
		upstream    *search.UpstreamError
		storage     *cache.Error
	)
	switch {
	case errors.As(err, &input),
		errors.As(err, &invalidURL),
		errors.As(err, &badScheme),
		errors.Is(err, fetch.ErrEmptyURL),
		errors.Is(err, fetch.ErrRenderDisabled),
		errors.Is(err, extract.ErrNoContent):
		return http.StatusBadRequest
	case fetch.IsSafetyError(err):
		return http.StatusForbidden
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &rateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &httpStatus),
		errors.As(err, &dns),
		errors.As(err, &robotsFetch),
		errors.Is(err, fetch.ErrRobotsTooLarge),
		errors.As(err, &auth),
		errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.As(err, &storage):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
