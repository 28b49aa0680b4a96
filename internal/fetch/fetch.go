package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Config controls Client behavior.
type Config struct {
	UserAgent     string
	MaxBytes      int64
	Timeout       time.Duration
	MaxRedirects  int
	RespectRobots bool
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "webcache/1.0"
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 5 * 1024 * 1024
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
	return c
}

// Request captures everything needed to fetch a URL.
type Request struct {
	URL    string
	Accept string
}

// Response is the validated envelope produced by a successful fetch.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	Headers     http.Header
	Duration    time.Duration
}

// Client turns a raw URL string into a size-and-redirect-bounded,
// policy-compliant HTTP response.
type Client struct {
	http   *http.Client
	cfg    Config
	robots *RobotsCache
	logger *zap.Logger
}

// NewClient constructs a Client whose transport dials through the SSRF guard.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()

	guard := NewGuard()
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         guard.DialContext,
		MaxIdleConns:        128,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		},
	}

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		robots: NewRobotsCache(cfg.UserAgent, transport, logger),
		logger: logger,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Robots returns the robots.txt compliance cache.
func (c *Client) Robots() *RobotsCache { return c.robots }

// Fetch runs the full pipeline: canonicalize, robots check, bounded GET.
//
// The response size ceiling is enforced twice: optimistically from the
// declared Content-Length, and authoritatively after the body is buffered.
// A non-2xx status is a hard failure; no body is ever returned with an error.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	TotalFetches.Inc()

	resp, err := c.fetch(ctx, start, req)
	if err != nil {
		TotalFetchErrors.Inc()
		var blocked *BlockedIPError
		var disallowed *RobotsDisallowedError
		switch {
		case errors.As(err, &blocked):
			TotalSSRFBlocked.Inc()
		case errors.As(err, &disallowed):
			TotalRobotsDenied.Inc()
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) fetch(ctx context.Context, start time.Time, req Request) (*Response, error) {
	u, err := Canonicalize(req.URL)
	if err != nil {
		return nil, err
	}
	if err := CheckScheme(u.Scheme); err != nil {
		return nil, err
	}

	if c.cfg.RespectRobots {
		if err := c.robots.IsAllowed(ctx, u); err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &InvalidURLError{Raw: req.URL, Err: err}
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	accept := req.Accept
	if accept == "" {
		accept = defaultAccept
	}
	httpReq.Header.Set("Accept", accept)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.classify(u.String(), err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body failed", zap.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{Status: resp.StatusCode}
	}

	if resp.ContentLength > c.cfg.MaxBytes {
		return nil, &TooLargeError{Size: resp.ContentLength, Limit: c.cfg.MaxBytes}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes+1))
	if err != nil {
		return nil, c.classify(u.String(), err)
	}
	if int64(len(body)) > c.cfg.MaxBytes {
		return nil, &TooLargeError{Size: int64(len(body)), Limit: c.cfg.MaxBytes}
	}

	final := httpReq.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}

	out := &Response{
		URL:         u.String(),
		FinalURL:    final.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Headers:     resp.Header.Clone(),
		Duration:    time.Since(start),
	}

	c.logger.Debug("fetched",
		zap.String("url", out.URL),
		zap.String("final_url", out.FinalURL),
		zap.Int("status", out.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", out.Duration),
	)
	return out, nil
}

// classify maps transport failures onto the pipeline's error kinds. Guard and
// resolver errors surface through url.Error wrapping and are re-exposed as-is.
func (c *Client) classify(rawURL string, err error) error {
	var (
		blockedIP     *BlockedIPError
		blockedScheme *BlockedSchemeError
		dnsErr        *DNSError
	)
	switch {
	case errors.As(err, &blockedIP):
		return blockedIP
	case errors.As(err, &blockedScheme):
		return blockedScheme
	case errors.As(err, &dnsErr):
		return dnsErr
	}

	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: rawURL, Timeout: c.cfg.Timeout}
	}
	return fmt.Errorf("network error: %w", err)
}
