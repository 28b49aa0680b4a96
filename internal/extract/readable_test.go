package extract

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func mustBase(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	return u
}

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Widget Review</title></head>
<body>
<nav><a href="/home">home</a></nav>
<article>
<h1>Widget Review</h1>
<p>The widget performs <strong>admirably</strong> under load, with a
throughput that exceeds every competitor we tested this year.</p>
<p>Read the <a href="/methodology">methodology</a> for details on the
benchmark environment and the workloads used during the evaluation.</p>
<ul><li>Fast</li><li>Cheap</li></ul>
<pre>widget --bench --all</pre>
</article>
<footer>Copyright</footer>
<script>alert("noise")</script>
</body>
</html>`

func TestExtractArticle(t *testing.T) {
	t.Parallel()

	r := NewReadable()
	result, err := r.Extract(articleHTML, mustBase(t, "https://example.com/reviews/widget"), Config{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.Title != "Widget Review" {
		t.Fatalf("unexpected title: %q", result.Title)
	}
	if !strings.Contains(result.Markdown, "# Widget Review") {
		t.Fatalf("expected h1 rendered as heading, got:\n%s", result.Markdown)
	}
	if !strings.Contains(result.Markdown, "**admirably**") {
		t.Fatalf("expected bold run, got:\n%s", result.Markdown)
	}
	if !strings.Contains(result.Markdown, "- Fast") {
		t.Fatalf("expected list items, got:\n%s", result.Markdown)
	}
	if !strings.Contains(result.Markdown, "```\nwidget --bench --all\n```") {
		t.Fatalf("expected code block, got:\n%s", result.Markdown)
	}
	if strings.Contains(result.Markdown, "alert") || strings.Contains(result.Markdown, "Copyright") {
		t.Fatalf("noise must be removed, got:\n%s", result.Markdown)
	}
	if result.Version != Version {
		t.Fatalf("expected version %q, got %q", Version, result.Version)
	}
}

func TestExtractResolvesRelativeLinks(t *testing.T) {
	t.Parallel()

	r := NewReadable()
	result, err := r.Extract(articleHTML, mustBase(t, "https://example.com/reviews/widget"), Config{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	var found bool
	for _, link := range result.Links {
		if link.Href == "https://example.com/methodology" && link.Text == "methodology" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected resolved methodology link, got %+v", result.Links)
	}
	if !strings.Contains(result.Markdown, "[methodology](https://example.com/methodology)") {
		t.Fatalf("expected inline markdown link, got:\n%s", result.Markdown)
	}
}

func TestExtractSkipsFragmentAndJavascriptLinks(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>T</title></head><body><article>
<p>Some text that is long enough to count as the main content of this page,
padded out so it clears the default character threshold for extraction.
More filler sentences follow to be safe about the length requirement here.</p>
<p><a href="#top">top</a> <a href="javascript:void(0)">js</a>
<a href="mailto:x@example.com">mail</a> <a href="/real">real</a></p>
</article></body></html>`

	r := NewReadable()
	result, err := r.Extract(html, mustBase(t, "https://example.com/"), Config{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Links) != 1 || result.Links[0].Href != "https://example.com/real" {
		t.Fatalf("expected only the real link, got %+v", result.Links)
	}
}

func TestExtractFallsBackToOGTitle(t *testing.T) {
	t.Parallel()

	html := `<html><head><meta property="og:title" content="OG Title"></head>
<body><article><p>Enough body text to pass the extraction threshold; this
sentence is deliberately verbose so the paragraph alone carries the page,
giving the candidate scorer plenty of characters to work with overall.</p>
</article></body></html>`

	r := NewReadable()
	result, err := r.Extract(html, nil, Config{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Title != "OG Title" {
		t.Fatalf("expected og:title fallback, got %q", result.Title)
	}
}

func TestExtractBodyFallbackWhenCandidateThin(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>T</title></head><body>
<main><p>Thin.</p></main>
<div><p>The actual content lives outside the obvious container on this page,
which happens often enough in the wild that the extractor falls back to the
body element whenever the best candidate comes in under the threshold.</p></div>
</body></html>`

	r := NewReadable()
	result, err := r.Extract(html, nil, Config{CharThreshold: 100})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(result.Markdown, "actual content") {
		t.Fatalf("expected body fallback to pick up the real text, got:\n%s", result.Markdown)
	}
}

func TestExtractNoContent(t *testing.T) {
	t.Parallel()

	r := NewReadable()
	_, err := r.Extract("<html><body></body></html>", nil, Config{})
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("Extract() = %v, want ErrNoContent", err)
	}
}

func TestExtractorName(t *testing.T) {
	t.Parallel()

	if NewReadable().Name() != "readable-goquery" {
		t.Fatal("extractor name changed; cached snapshots reference it")
	}
}
