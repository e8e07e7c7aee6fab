package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sageview/sageview/internal/fetch"
)

func testClient() *fetch.Client {
	return &fetch.Client{UserAgent: "sageview-test", MaxAttempts: 1, PerRequestTimeout: 2 * time.Second}
}

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
}

func TestExtract_ReadabilitySucceedsOnArticle(t *testing.T) {
	para := strings.Repeat("Readable sentence with enough substance to count. ", 10)
	srv := serve(t, fmt.Sprintf(`<!doctype html><html><head><title>Article Page</title></head><body>
      <nav>menu menu menu</nav>
      <article><h1>Topic</h1><p>%s</p><p>%s</p></article>
      <footer>footer</footer></body></html>`, para, para))
	defer srv.Close()

	e := &Extractor{Fetcher: testClient()}
	doc, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Text, "Readable sentence") {
		t.Fatalf("expected article text, got %q", doc.Text[:min(len(doc.Text), 120)])
	}
	if strings.Contains(doc.Text, "menu menu menu") {
		t.Fatalf("expected boilerplate removed")
	}
}

func TestExtract_FetchFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	e := &Extractor{Fetcher: testClient()}
	if _, err := e.Extract(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error on fetch failure")
	}
}

func TestExtract_NoPlausibleContent(t *testing.T) {
	srv := serve(t, `<html><head><title>Thin</title></head><body><p>tiny</p></body></html>`)
	defer srv.Close()

	e := &Extractor{Fetcher: testClient()}
	_, err := e.Extract(context.Background(), srv.URL)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestExtract_TruncatesToPerSourceCap(t *testing.T) {
	para := strings.Repeat("Long body text keeps going and going. ", 50)
	srv := serve(t, fmt.Sprintf(`<html><head><title>Big</title></head><body><article><p>%s</p></article></body></html>`, para))
	defer srv.Close()

	e := &Extractor{Fetcher: testClient(), PerSourceChars: 500}
	doc, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Text) > 500 {
		t.Fatalf("expected text capped at 500 chars, got %d", len(doc.Text))
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// 2-byte runes with an odd cap: the cut must back off to a boundary
	// instead of leaving a dangling continuation byte.
	doc := truncate(Document{Text: strings.Repeat("é", 40)}, 33)
	if !utf8.ValidString(doc.Text) {
		t.Fatalf("truncated text is not valid UTF-8: %q", doc.Text)
	}
	if len(doc.Text) != 32 {
		t.Fatalf("expected 32 bytes after backing off, got %d", len(doc.Text))
	}
	// ASCII is unaffected.
	if got := truncate(Document{Text: "abcdef"}, 3).Text; got != "abc" {
		t.Fatalf("expected %q, got %q", "abc", got)
	}
}

func TestFromCandidates_PrefersOrderedContainers(t *testing.T) {
	long := strings.Repeat("Fallback paragraph content here. ", 20)
	page := fmt.Sprintf(`<html><head><title>Candidates</title></head><body>
      <div class="sidebar"><p>short sidebar</p></div>
      <div id="content"><p>%s</p></div>
    </body></html>`, long)

	doc, ok := fromCandidates([]byte(page), 100, 200)
	if !ok {
		t.Fatalf("expected candidate acceptance")
	}
	if !strings.Contains(doc.Text, "Fallback paragraph content") {
		t.Fatalf("expected div#content text, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "short sidebar") {
		t.Fatalf("did not expect sidebar text")
	}
	if doc.Title != "Candidates" {
		t.Fatalf("expected title from head, got %q", doc.Title)
	}
}

func TestFromCandidates_RoleMainContainer(t *testing.T) {
	long := strings.Repeat("Role main paragraph text. ", 20)
	page := fmt.Sprintf(`<html><body><div role="main"><p>%s</p></div></body></html>`, long)

	doc, ok := fromCandidates([]byte(page), 100, 200)
	if !ok || !strings.Contains(doc.Text, "Role main paragraph") {
		t.Fatalf("expected role=main container accepted, got ok=%v text=%q", ok, doc.Text)
	}
}

func TestFromCandidates_LastResortJoinsAllParagraphs(t *testing.T) {
	// No single container clears the fallback threshold, but the document as a
	// whole clears the lower one.
	page := `<html><body>
      <div class="a"><p>` + strings.Repeat("alpha ", 15) + `</p></div>
      <div class="b"><p>` + strings.Repeat("beta ", 15) + `</p></div>
    </body></html>`

	doc, ok := fromCandidates([]byte(page), 100, 200)
	if !ok {
		t.Fatalf("expected last-resort acceptance")
	}
	if !strings.Contains(doc.Text, "alpha") || !strings.Contains(doc.Text, "beta") {
		t.Fatalf("expected all paragraphs joined, got %q", doc.Text)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
