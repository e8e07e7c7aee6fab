package extract

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/sageview/sageview/internal/fetch"
)

// Default acceptance thresholds. These are heuristic tuning constants, kept
// configurable on the Extractor rather than treated as contracts.
const (
	DefaultMinPrimaryChars  = 100
	DefaultMinFallbackChars = 200
	DefaultPerSourceChars   = 15_000
)

// Document is a simplified representation of extracted page content.
type Document struct {
	Title string
	Text  string
}

// ErrNoContent indicates neither strategy produced plausible body text.
var ErrNoContent = errors.New("no extractable content")

// Extractor turns a URL into cleaned body text using a high-precision
// readability pass with an automatic generic fallback. Both strategies must
// clear a minimum length threshold before their output is accepted, so
// extraction degrades gracefully across uncontrolled markup instead of
// failing outright.
type Extractor struct {
	Fetcher *fetch.Client
	// MinPrimaryChars gates the readability strategy. Zero means default (100).
	MinPrimaryChars int
	// MinFallbackChars gates fallback container candidates. Zero means default (200).
	MinFallbackChars int
	// PerSourceChars truncates accepted text. Zero means default (15000).
	PerSourceChars int
}

// Extract fetches the URL and returns cleaned body text. Fetch failures,
// non-HTML payloads, and implausibly short extractions all surface as errors
// which the caller treats as absence, never as request failures.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (Document, error) {
	if e == nil || e.Fetcher == nil {
		return Document{}, errors.New("extractor not configured")
	}
	body, _, err := e.Fetcher.Get(ctx, pageURL)
	if err != nil {
		return Document{}, err
	}

	minPrimary := e.MinPrimaryChars
	if minPrimary <= 0 {
		minPrimary = DefaultMinPrimaryChars
	}
	minFallback := e.MinFallbackChars
	if minFallback <= 0 {
		minFallback = DefaultMinFallbackChars
	}
	capChars := e.PerSourceChars
	if capChars <= 0 {
		capChars = DefaultPerSourceChars
	}

	// Tier 1: boilerplate-removing readability pass.
	if doc, ok := fromReadability(body, pageURL, minPrimary); ok {
		log.Debug().Str("url", pageURL).Int("chars", len(doc.Text)).Msg("readability extraction accepted")
		return truncate(doc, capChars), nil
	}
	log.Debug().Str("url", pageURL).Msg("readability extraction rejected; falling back")

	// Tier 2: generic container scan over the raw markup.
	if doc, ok := fromCandidates(body, minPrimary, minFallback); ok {
		log.Debug().Str("url", pageURL).Int("chars", len(doc.Text)).Msg("fallback extraction accepted")
		return truncate(doc, capChars), nil
	}
	return Document{}, ErrNoContent
}

func truncate(d Document, capChars int) Document {
	if len(d.Text) > capChars {
		d.Text = cutAtRune(d.Text, capChars)
	}
	return d
}

// cutAtRune shortens s to at most n bytes without splitting a UTF-8 sequence.
func cutAtRune(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func fromReadability(body []byte, pageURL string, minChars int) (Document, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return Document{}, false
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) <= minChars {
		return Document{}, false
	}
	return Document{Title: strings.TrimSpace(article.Title), Text: text}, true
}

// candidate describes one likely content container, checked in order.
type candidate struct {
	tag   string
	attr  string // "", "id", "class", or "role"
	value string
}

var containerCandidates = []candidate{
	{tag: "article"},
	{tag: "main"},
	{tag: "div", attr: "id", value: "content"},
	{tag: "div", attr: "class", value: "content"},
	{tag: "div", attr: "id", value: "main-content"},
	{tag: "div", attr: "class", value: "main-content"},
	{tag: "div", attr: "class", value: "entry-content"},
	{tag: "div", attr: "role", value: "main"},
}

// fromCandidates walks an ordered list of likely content containers and joins
// their paragraph text, accepting the first candidate above the fallback
// threshold. As a last resort it joins every paragraph in the document against
// the lower primary threshold.
func fromCandidates(body []byte, minPrimary, minFallback int) (Document, bool) {
	node, err := html.Parse(bytes.NewReader(body))
	if err != nil || node == nil {
		return Document{}, false
	}
	title := findTitle(node)

	for _, c := range containerCandidates {
		container := findContainer(node, c)
		if container == nil {
			continue
		}
		text := joinParagraphs(container)
		if len(text) > minFallback {
			return Document{Title: title, Text: text}, true
		}
	}
	// Last resort: every <p> in the document.
	if text := joinParagraphs(node); len(text) > minPrimary {
		return Document{Title: title, Text: text}, true
	}
	return Document{}, false
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(t.FirstChild.Data)
}

func findFirst(n *html.Node, tag string) *html.Node {
	return findMatching(n, func(cur *html.Node) bool {
		return strings.EqualFold(cur.Data, tag)
	})
}

func findContainer(n *html.Node, c candidate) *html.Node {
	return findMatching(n, func(cur *html.Node) bool {
		if !strings.EqualFold(cur.Data, c.tag) {
			return false
		}
		if c.attr == "" {
			return true
		}
		for _, attr := range cur.Attr {
			if !strings.EqualFold(attr.Key, c.attr) {
				continue
			}
			if c.attr == "class" {
				for _, cls := range strings.Fields(attr.Val) {
					if cls == c.value {
						return true
					}
				}
				continue
			}
			if strings.EqualFold(strings.TrimSpace(attr.Val), c.value) {
				return true
			}
		}
		return false
	})
}

func findMatching(n *html.Node, match func(*html.Node) bool) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && match(cur) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

// joinParagraphs collects the text of every <p> descendant, space-joined.
func joinParagraphs(n *html.Node) string {
	var parts []string
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, "p") {
			if t := collapseSpaces(textOf(cur)); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(n)
	return strings.Join(parts, " ")
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.ElementNode {
			switch strings.ToLower(cur.Data) {
			case "script", "style", "noscript":
				return
			}
		}
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(n)
	return b.String()
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}
