// Package report keeps finished research reports in memory so that the
// download endpoints can serve exports after the initial response.
package report

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sageview/sageview/internal/search"
)

// DefaultCapacity bounds the store; the oldest report is evicted once the
// capacity is exceeded.
const DefaultCapacity = 100

// Source is a cited source as presented to readers: a contiguous zero-based
// index, the page URL, a display title and a short text preview.
type Source struct {
	Index   int    `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Preview string `json:"text_preview"`
}

// Report is one completed synthesis run.
type Report struct {
	Query   string       `json:"query"`
	Raw     string       `json:"answer_raw"`
	Markup  string       `json:"answer_html"`
	Sources []Source     `json:"sources"`
	Depth   search.Depth `json:"research_depth"`
}

// Store is a bounded FIFO report store. The zero value is not usable; use
// NewStore.
type Store struct {
	mu    sync.Mutex
	cap   int
	items map[string]Report
	order []string
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{cap: capacity, items: make(map[string]Report, capacity)}
}

// Put stores the report under a fresh id and returns it. When the store is
// full the single oldest report is evicted in the same critical section.
func (s *Store) Put(r Report) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) >= s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	s.items[id] = r
	s.order = append(s.order, id)
	return id
}

func (s *Store) Get(id string) (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	return r, ok
}

// Len reports how many reports are currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
