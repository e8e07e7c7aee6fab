package search

import (
	"context"
	"net/url"
	"strings"
)

// Result represents a single search hit from any provider.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Source  string // provider name for observability
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// Normalize canonicalizes URLs, trims obvious tracking parameters, and
// de-duplicates exact URLs while preserving input order.
func Normalize(results []Result) []Result {
	seen := map[string]struct{}{}
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		u, err := url.Parse(r.URL)
		if err != nil {
			continue
		}
		normalizeURL(u)
		key := u.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		r.URL = key
		out = append(out, r)
	}
	return out
}

func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	// Remove common tracking params
	for _, p := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"} {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
}
