package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// robotsTTL is how long a cached per-origin ruleset stays valid.
const robotsTTL = 24 * time.Hour

// maxRobotsBytes caps how much robots.txt we are willing to read.
const maxRobotsBytes = 1 << 20

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// RobotsCache fetches, caches and evaluates per-origin robots.txt rulesets.
//
// Reads take the shared lock, so a fresh entry short-circuits without network
// access regardless of concurrent writers. Concurrent misses for one origin
// may each refetch; every writer stores an equivalent ruleset so the
// last-write-wins replacement is harmless.
type RobotsCache struct {
	mu        sync.RWMutex
	entries   map[string]*robotsEntry
	client    *http.Client
	userAgent string
	logger    *zap.Logger
	now       func() time.Time
}

// NewRobotsCache builds a RobotsCache using the given transport so robots
// fetches go through the same SSRF guard as page fetches.
func NewRobotsCache(userAgent string, transport http.RoundTripper, logger *zap.Logger) *RobotsCache {
	return &RobotsCache{
		entries: make(map[string]*robotsEntry),
		client: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
		userAgent: userAgent,
		logger:    logger,
		now:       time.Now,
	}
}

// IsAllowed checks whether u may be fetched under its origin's robots.txt.
//
// Returns nil when allowed, RobotsDisallowedError when refused, and
// RobotsFetchError when the ruleset could not be obtained (that failure is
// not cached, so the next call retries).
func (c *RobotsCache) IsAllowed(ctx context.Context, u *url.URL) error {
	origin := u.Scheme + "://" + u.Host
	robotsURL := origin + "/robots.txt"

	c.mu.RLock()
	entry, ok := c.entries[origin]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.fetchedAt) <= robotsTTL {
		return c.evaluate(entry.data, u, robotsURL)
	}

	data, err := c.fetchRobots(ctx, robotsURL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[origin] = &robotsEntry{data: data, fetchedAt: c.now()}
	c.mu.Unlock()

	return c.evaluate(data, u, robotsURL)
}

func (c *RobotsCache) evaluate(data *robotstxt.RobotsData, u *url.URL, robotsURL string) error {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	group := data.FindGroup(c.userAgent)
	if group == nil || group.Test(path) {
		return nil
	}
	return &RobotsDisallowedError{Path: path, RobotsURL: robotsURL}
}

func (c *RobotsCache) fetchRobots(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, &RobotsFetchError{RobotsURL: robotsURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RobotsFetchError{RobotsURL: robotsURL, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close robots body failed", zap.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if resp.ContentLength > maxRobotsBytes {
			return nil, ErrRobotsTooLarge
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes+1))
		if err != nil {
			return nil, &RobotsFetchError{RobotsURL: robotsURL, Err: err}
		}
		if len(body) > maxRobotsBytes {
			return nil, ErrRobotsTooLarge
		}
		data, err := robotstxt.FromBytes(body)
		if err != nil {
			return nil, &RobotsFetchError{RobotsURL: robotsURL, Err: err}
		}
		return data, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// No robots.txt: default allow, and cache it so we don't re-miss.
		c.logger.Debug("robots.txt absent, allowing all", zap.String("robots_url", robotsURL))
		return robotstxt.FromString("")
	default:
		return nil, &RobotsFetchError{
			RobotsURL: robotsURL,
			Err:       fmt.Errorf("status %d", resp.StatusCode),
		}
	}
}

// CleanupExpired drops entries past their TTL. Expired entries are never
// served either way; this just bounds memory on long-running processes.
func (c *RobotsCache) CleanupExpired() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for origin, entry := range c.entries {
		if now.Sub(entry.fetchedAt) > robotsTTL {
			delete(c.entries, origin)
		}
	}
}
