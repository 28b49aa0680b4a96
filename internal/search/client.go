// Package search implements the search-provider client and its cached
// front end over the keyed search_cache store.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// AuthError reports a rejected API key.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string { return fmt.Sprintf("search auth error: status %d", e.Status) }

// RateLimitedError reports provider throttling.
type RateLimitedError struct{}

func (e *RateLimitedError) Error() string { return "search rate limited" }

// UpstreamError reports any other provider failure.
type UpstreamError struct {
	Status int
	Msg    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("search upstream error: status %d: %s", e.Status, e.Msg)
}

// Query is one search request.
type Query struct {
	Q     string `json:"q"`
	Count int    `json:"count,omitempty"`
}

// Result is one hit returned by the provider.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Response is the provider's answer to one Query.
type Response struct {
	Query   Query    `json:"query"`
	Results []Result `json:"results"`
}

// Searcher is the capability the cached wrapper and handlers depend on.
type Searcher interface {
	Search(ctx context.Context, q Query) (*Response, error)
}

// Client talks to the search provider's HTTP API.
type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	logger   *zap.Logger
}

// NewClient builds a provider client.
func NewClient(endpoint, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		endpoint: endpoint,
		apiKey:   apiKey,
		logger:   logger,
	}
}

// Search implements Searcher.
func (c *Client) Search(ctx context.Context, q Query) (*Response, error) {
	if q.Q == "" {
		return nil, fmt.Errorf("empty query")
	}
	if c.apiKey == "" {
		return nil, &AuthError{Status: 0}
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	values := u.Query()
	values.Set("q", q.Q)
	if q.Count > 0 {
		values.Set("count", strconv.Itoa(q.Count))
	}
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close search body failed", zap.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitedError{}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Status: resp.StatusCode, Msg: string(body)}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out.Query = q
	return &out, nil
}
