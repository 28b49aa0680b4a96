// Package extract defines the extraction capability consumed by the fetch
// pipeline: HTML plus a base URL in, title/markdown/links out. Orchestration
// code depends only on the Extractor interface so engines can be swapped
// without touching it.
package extract

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrNoContent is returned when no block of text clears the threshold.
var ErrNoContent = errors.New("no readable content found")

// FailedError wraps an extraction engine failure.
type FailedError struct {
	Err error
}

func (e *FailedError) Error() string { return fmt.Sprintf("extraction failed: %v", e.Err) }

func (e *FailedError) Unwrap() error { return e.Err }

// Config tunes candidate selection.
type Config struct {
	// CharThreshold is the minimum character count a candidate block must
	// reach to be chosen. Zero means the default.
	CharThreshold int

	// MaxTopCandidates bounds how many scored candidates are considered.
	// Zero means the default.
	MaxTopCandidates int
}

// Link is one harvested hyperlink, href resolved against the base URL.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Result is the output of one extraction.
type Result struct {
	Title    string
	Markdown string
	Links    []Link
	Version  string
}

// Extractor turns fetched HTML into readable content.
type Extractor interface {
	Name() string
	Extract(html string, base *url.URL, cfg Config) (*Result, error)
}
