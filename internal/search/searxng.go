package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SearxNG queries a SearxNG instance over its JSON search API. The instance
// decides ranking; this provider only trims, filters and caps the results.
type SearxNG struct {
	BaseURL    string
	APIKey     string // optional
	HTTPClient *http.Client
	UserAgent  string // optional custom UA
}

func (s *SearxNG) Name() string { return "searxng" }

// searxHit is the subset of the instance's result schema the pipeline needs.
type searxHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// endpoint builds the /search URL for one query. The path suffix is appended
// when the configured base does not already carry it.
func (s *SearxNG) endpoint(query string, limit int) (string, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse searxng base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	q := url.Values{
		"q":          {query},
		"format":     {"json"},
		"language":   {"auto"},
		"safesearch": {"1"},
		"categories": {"general"},
		"count":      {strconv.Itoa(limit)},
	}
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(s.BaseURL) == "" {
		return nil, errors.New("searxng base url not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	endpoint, err := s.endpoint(query, limit)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	hc := s.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("searxng status: %d", resp.StatusCode)
	}

	var page struct {
		Results []searxHit `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode searxng response: %w", err)
	}

	results := make([]Result, 0, limit)
	for _, hit := range page.Results {
		title := strings.TrimSpace(hit.Title)
		link := strings.TrimSpace(hit.URL)
		if title == "" || link == "" {
			continue
		}
		results = append(results, Result{
			Title:   title,
			URL:     link,
			Snippet: strings.TrimSpace(hit.Content),
			Source:  s.Name(),
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
