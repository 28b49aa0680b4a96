package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Version identifies the extraction algorithm; bump on behavior changes so
// cached artifacts stay attributable to the code that produced them.
const Version = "0.2.0"

const (
	defaultCharThreshold    = 250
	defaultMaxTopCandidates = 5
)

// candidateSelectors, in rough priority order. body is the fallback of last
// resort.
var candidateSelectors = []string{
	"article", "main", "[role=main]", "#content", ".content",
	".post", ".entry-content", ".article-body", "body",
}

const noiseSelector = "script, style, noscript, iframe, svg, nav, footer, aside, form, header"

// Readable is the goquery-backed Extractor variant: it scores container
// candidates by text density and renders the winner as markdown.
type Readable struct{}

// NewReadable returns the readable-mode extractor.
func NewReadable() *Readable { return &Readable{} }

// Name implements Extractor.
func (r *Readable) Name() string { return "readable-goquery" }

// Extract implements Extractor.
func (r *Readable) Extract(rawHTML string, base *url.URL, cfg Config) (*Result, error) {
	if cfg.CharThreshold <= 0 {
		cfg.CharThreshold = defaultCharThreshold
	}
	if cfg.MaxTopCandidates <= 0 {
		cfg.MaxTopCandidates = defaultMaxTopCandidates
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, &FailedError{Err: err}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && title == "" {
		title = strings.TrimSpace(og)
	}

	doc.Find(noiseSelector).Remove()

	content := pickCandidate(doc, cfg)
	if content == nil {
		return nil, ErrNoContent
	}

	markdown := strings.TrimSpace(renderMarkdown(content, base))
	if len(markdown) < cfg.CharThreshold && content.Nodes != nil {
		// Candidate too thin; body is the last resort before giving up.
		body := doc.Find("body").First()
		if body.Length() > 0 {
			markdown = strings.TrimSpace(renderMarkdown(body, base))
		}
	}
	if markdown == "" {
		return nil, ErrNoContent
	}

	return &Result{
		Title:    title,
		Markdown: markdown,
		Links:    harvestLinks(content, base),
		Version:  Version,
	}, nil
}

// pickCandidate scores each selector's first match by paragraph-weighted text
// length and returns the best of the top candidates.
func pickCandidate(doc *goquery.Document, cfg Config) *goquery.Selection {
	var best *goquery.Selection
	bestScore := 0
	considered := 0

	for _, sel := range candidateSelectors {
		if considered >= cfg.MaxTopCandidates {
			break
		}
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		considered++
		score := len(strings.TrimSpace(s.Text())) + 50*s.Find("p").Length()
		if score > bestScore {
			best = s
			bestScore = score
		}
	}
	return best
}

func harvestLinks(content *goquery.Selection, base *url.URL) []Link {
	links := make([]Link, 0)
	content.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		abs := href
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				abs = base.ResolveReference(ref).String()
			}
		}
		links = append(links, Link{
			Text: strings.Join(strings.Fields(a.Text()), " "),
			Href: abs,
		})
	})
	return links
}

// renderMarkdown walks the selection's nodes and emits block-level markdown.
func renderMarkdown(content *goquery.Selection, base *url.URL) string {
	var b strings.Builder
	for _, node := range content.Nodes {
		renderNode(&b, node, base)
	}
	return b.String()
}

func renderNode(b *strings.Builder, n *html.Node, base *url.URL) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(n.Data[1] - '0')
			text := inlineText(n, base)
			if text != "" {
				b.WriteString("\n" + strings.Repeat("#", level) + " " + text + "\n")
			}
			return
		case "p":
			text := inlineText(n, base)
			if text != "" {
				b.WriteString("\n" + text + "\n")
			}
			return
		case "li":
			text := inlineText(n, base)
			if text != "" {
				b.WriteString("- " + text + "\n")
			}
			return
		case "pre":
			text := strings.TrimRight(rawText(n), "\n")
			if text != "" {
				b.WriteString("\n```\n" + text + "\n```\n")
			}
			return
		case "blockquote":
			text := inlineText(n, base)
			if text != "" {
				b.WriteString("\n> " + text + "\n")
			}
			return
		case "br":
			b.WriteString("\n")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(b, c, base)
	}
}

// inlineText flattens a block's children to one line, rendering anchors as
// markdown links and emphasis markers around strong/em runs.
func inlineText(n *html.Node, base *url.URL) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			switch c.Data {
			case "a":
				text := strings.TrimSpace(rawText(c))
				href := attrValue(c, "href")
				if text != "" && href != "" && !strings.HasPrefix(href, "javascript:") {
					if base != nil {
						if ref, err := url.Parse(href); err == nil {
							href = base.ResolveReference(ref).String()
						}
					}
					b.WriteString("[" + text + "](" + href + ")")
					return
				}
			case "strong", "b":
				b.WriteString("**" + strings.TrimSpace(rawText(c)) + "**")
				return
			case "em", "i":
				b.WriteString("*" + strings.TrimSpace(rawText(c)) + "*")
				return
			case "code":
				b.WriteString("`" + rawText(c) + "`")
				return
			}
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				walk(gc)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	walk(n)
	return b.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
