package aggregate

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sageview/sageview/internal/extract"
)

// Defaults for budget-bounded accumulation.
const (
	DefaultTotalCapChars = 200_000
	DefaultThrottle      = 300 * time.Millisecond
	DefaultLowYieldRatio = 0.4
)

// Source is one successfully extracted web document. Index is assigned by
// order of successful extraction only; failed URLs consume no index. Once
// assigned, an index is never reordered — it is the binding key for every
// citation marker in the synthesized answer.
type Source struct {
	Index int
	URL   string
	Title string
	Text  string
}

// Extractor is the single capability the aggregator drives per URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (extract.Document, error)
}

// Aggregator fans extraction out over a bounded worker pool and funnels
// results through a synchronized budget sink. Workers=1 reproduces the plain
// sequential loop with a politeness delay between attempts.
type Aggregator struct {
	Extractor Extractor
	// TotalCapChars bounds accumulated text length. Zero means default (200k).
	TotalCapChars int
	// Throttle is the politeness delay between extraction attempts. Negative
	// disables it; zero means default (300ms).
	Throttle time.Duration
	// Workers bounds concurrent extractions. Zero or one means sequential.
	Workers int
	// LowYieldRatio is the success/attempt ratio below which a warning is
	// logged. Zero means default (0.4). The warning never gates behavior.
	LowYieldRatio float64
}

// budget is the mutable per-call accumulation state. It is owned by a single
// Aggregate call and guarded because workers report into it concurrently.
type budget struct {
	mu        sync.Mutex
	total     int
	cap       int
	succeeded int
	failed    int
}

func (b *budget) exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total >= b.cap
}

func (b *budget) recordSuccess(chars int) {
	b.mu.Lock()
	b.succeeded++
	b.total += chars
	b.mu.Unlock()
}

func (b *budget) recordFailure() {
	b.mu.Lock()
	b.failed++
	b.mu.Unlock()
}

// Aggregate drives extraction across the given URLs and returns the ordered
// source list. URLs are deduplicated before any attempt. Extraction failures
// are absorbed (logged, no Source, no index). Accumulation stops once the
// total cap is reached: the source that would overflow is truncated to the
// remaining budget, and later URLs are skipped. This is a deliberate
// latency/cost bound, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, urls []string) []Source {
	deduped := dedupe(urls)
	if len(deduped) == 0 {
		return nil
	}
	capChars := a.TotalCapChars
	if capChars <= 0 {
		capChars = DefaultTotalCapChars
	}
	throttle := a.Throttle
	if throttle == 0 {
		throttle = DefaultThrottle
	}
	workers := a.Workers
	if workers <= 0 {
		workers = 1
	}

	b := &budget{cap: capChars}
	docs := make([]*extract.Document, len(deduped))
	attempted := 0

	var g errgroup.Group
	g.SetLimit(workers)
	for i, u := range deduped {
		if b.exhausted() {
			log.Warn().Int("remaining", len(deduped)-i).Msg("total content cap reached; skipping remaining URLs")
			break
		}
		if ctx.Err() != nil {
			break
		}
		attempted++
		g.Go(func() error {
			if throttle > 0 {
				select {
				case <-time.After(throttle):
				case <-ctx.Done():
					b.recordFailure()
					return nil
				}
			}
			doc, err := a.Extractor.Extract(ctx, u)
			if err != nil {
				log.Warn().Err(err).Str("url", u).Msg("extraction failed; skipping source")
				b.recordFailure()
				return nil
			}
			docs[i] = &doc
			b.recordSuccess(len(doc.Text))
			return nil
		})
	}
	_ = g.Wait()

	// Assign indexes over successes in input order, enforcing the cap exactly:
	// a document that would overflow is cut to the remaining budget and closes
	// the run, so the accumulated total never exceeds the cap.
	sources := make([]Source, 0, len(deduped))
	total := 0
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		remaining := capChars - total
		if remaining <= 0 {
			break
		}
		text := doc.Text
		if len(text) > remaining {
			text = cutAtRune(text, remaining)
		}
		sources = append(sources, Source{
			Index: len(sources),
			URL:   deduped[i],
			Title: doc.Title,
			Text:  text,
		})
		total += len(text)
	}

	lowYield := a.LowYieldRatio
	if lowYield <= 0 {
		lowYield = DefaultLowYieldRatio
	}
	if attempted > 0 {
		ratio := float64(len(sources)) / float64(attempted)
		if ratio < lowYield {
			log.Warn().Float64("ratio", ratio).Int("attempted", attempted).Int("succeeded", len(sources)).Msg("low extraction yield")
		}
	}
	log.Info().Int("attempted", attempted).Int("sources", len(sources)).Int("chars", total).Msg("aggregation finished")
	return sources
}

// cutAtRune shortens s to at most n bytes without splitting a UTF-8 sequence.
func cutAtRune(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func dedupe(urls []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
