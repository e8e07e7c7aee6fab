package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DuckDuckGo implements Provider against the DuckDuckGo HTML endpoint, which
// needs no API key. Result links arrive as redirect URLs carrying the target
// in a "uddg" query parameter.
type DuckDuckGo struct {
	BaseURL    string // defaults to https://html.duckduckgo.com/html/
	HTTPClient *http.Client
	UserAgent  string
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	base := d.BaseURL
	if base == "" {
		base = "https://html.duckduckgo.com/html/"
	}
	endpoint := fmt.Sprintf("%s?q=%s", base, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
	hc := d.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("duckduckgo status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	results := parseDuckDuckGoHTML(body, d.Name())
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// parseDuckDuckGoHTML walks the result page and pairs each result__a link
// with the closest result__snippet text that follows it.
func parseDuckDuckGoHTML(body []byte, providerName string) []Result {
	node, err := html.Parse(strings.NewReader(string(body)))
	if err != nil || node == nil {
		return nil
	}
	var out []Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") {
			switch {
			case hasClass(n, "result__a"):
				href := attrValue(n, "href")
				target := decodeRedirect(href)
				title := strings.TrimSpace(nodeText(n))
				if target != "" && title != "" {
					out = append(out, Result{Title: title, URL: target, Source: providerName})
				}
			case hasClass(n, "result__snippet"):
				if len(out) > 0 && out[len(out)-1].Snippet == "" {
					out[len(out)-1].Snippet = strings.TrimSpace(nodeText(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return out
}

// decodeRedirect unwraps DuckDuckGo's /l/?uddg=<escaped-url> indirection.
// Plain absolute URLs pass through unchanged.
func decodeRedirect(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.IsAbs() {
		return href
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, "class") {
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
