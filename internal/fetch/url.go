// Package fetch implements the safety-gated HTTP fetch pipeline: URL
// canonicalization, SSRF protection, robots.txt compliance and the
// size-and-redirect-bounded GET itself.
package fetch

import (
	"net/url"
	"strings"
)

// Canonicalize normalizes a raw input string into a comparable URL.
//
// It trims surrounding whitespace, defaults the scheme to https when none is
// present, lowercases the host and strips any fragment. The query string is
// preserved byte-for-byte; reordering or re-encoding it would change the
// meaning of the cache key. Canonicalize is idempotent.
func Canonicalize(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmptyURL
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, &InvalidURLError{Raw: raw, Err: err}
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return nil, &UnsupportedSchemeError{Scheme: u.Scheme}
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	return u, nil
}
