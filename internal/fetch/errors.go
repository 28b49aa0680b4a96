package fetch

import (
	"errors"
	"fmt"
	"net/netip"
	"time"
)

// ErrEmptyURL is returned when the input URL is empty or whitespace-only.
var ErrEmptyURL = errors.New("empty URL")

// ErrRenderDisabled is returned when a rendered-mode fetch is requested.
var ErrRenderDisabled = errors.New("render mode is disabled")

// InvalidURLError reports a URL that failed to parse.
type InvalidURLError struct {
	Raw string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL %q: %v", e.Raw, e.Err)
}

func (e *InvalidURLError) Unwrap() error { return e.Err }

// UnsupportedSchemeError reports a scheme outside the http/https allowlist.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported scheme: %s", e.Scheme)
}

// BlockedSchemeError reports a scheme on the SSRF denylist.
type BlockedSchemeError struct {
	Scheme string
}

func (e *BlockedSchemeError) Error() string {
	return fmt.Sprintf("blocked scheme: %s", e.Scheme)
}

// BlockedIPError reports a resolved address inside private or reserved space.
type BlockedIPError struct {
	IP netip.Addr
}

func (e *BlockedIPError) Error() string {
	return fmt.Sprintf("blocked IP: %s (private/reserved)", e.IP)
}

// DNSError reports a failed hostname resolution.
type DNSError struct {
	Host string
	Err  error
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("DNS resolution failed for %s: %v", e.Host, e.Err)
}

func (e *DNSError) Unwrap() error { return e.Err }

// RobotsDisallowedError reports a path refused by the origin's robots.txt.
type RobotsDisallowedError struct {
	Path      string
	RobotsURL string
}

func (e *RobotsDisallowedError) Error() string {
	return fmt.Sprintf("robots.txt disallowed: %s (robots_url: %s)", e.Path, e.RobotsURL)
}

// RobotsFetchError reports a robots.txt fetch that failed in a way that must
// not be cached (network error or 5xx), so the next caller retries.
type RobotsFetchError struct {
	RobotsURL string
	Err       error
}

func (e *RobotsFetchError) Error() string {
	return fmt.Sprintf("failed to fetch robots.txt %s: %v", e.RobotsURL, e.Err)
}

func (e *RobotsFetchError) Unwrap() error { return e.Err }

// ErrRobotsTooLarge is returned when a robots.txt exceeds the size ceiling.
var ErrRobotsTooLarge = errors.New("robots.txt too large")

// TooLargeError reports a response body over the configured byte ceiling.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%d bytes exceeds %d", e.Size, e.Limit)
}

// TimeoutError reports a fetch that exceeded its wall-clock budget.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fetch of %s timed out after %s", e.URL, e.Timeout)
}

// HTTPStatusError reports a non-2xx upstream response. Callers never receive
// a body alongside it.
type HTTPStatusError struct {
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("status %d", e.Status)
}

// IsSafetyError reports whether err is one of the never-retried safety kinds
// (scheme denylist, blocked address, robots disallow).
func IsSafetyError(err error) bool {
	var (
		scheme *BlockedSchemeError
		ip     *BlockedIPError
		robots *RobotsDisallowedError
	)
	return errors.As(err, &scheme) || errors.As(err, &ip) || errors.As(err, &robots)
}
