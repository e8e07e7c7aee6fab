// Package app wires the research pipeline together: web retrieval, content
// aggregation, synthesis and report assembly.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sageview/sageview/internal/aggregate"
	"github.com/sageview/sageview/internal/extract"
	"github.com/sageview/sageview/internal/fetch"
	"github.com/sageview/sageview/internal/llm"
	"github.com/sageview/sageview/internal/report"
	"github.com/sageview/sageview/internal/search"
	"github.com/sageview/sageview/internal/synth"
)

// SourcePreviewChars caps the text preview carried on each cited source.
const SourcePreviewChars = 300

var (
	// ErrNoSearchResults means retrieval produced no candidate URLs.
	ErrNoSearchResults = errors.New("could not find relevant web sources")
	// ErrNoUsableContent means every candidate URL failed extraction.
	ErrNoUsableContent = errors.New("failed to retrieve usable content from web sources")
)

// App owns the assembled pipeline and the report store.
type App struct {
	cfg        Config
	retriever  *search.Retriever
	aggregator *aggregate.Aggregator
	synth      *synth.Synthesizer

	Store *report.Store
}

// New validates the configuration and assembles the pipeline.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var provider search.Provider
	switch cfg.SearchProvider {
	case "searxng":
		provider = &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, UserAgent: cfg.UserAgent}
	default:
		provider = &search.DuckDuckGo{UserAgent: cfg.UserAgent}
	}

	fetcher := &fetch.Client{
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       2,
		PerRequestTimeout: 15 * time.Second,
	}
	extractor := &extract.Extractor{
		Fetcher:        fetcher,
		PerSourceChars: cfg.PerSourceChars,
	}
	aggregator := &aggregate.Aggregator{
		Extractor:     extractor,
		TotalCapChars: cfg.TotalCapChars,
		Throttle:      cfg.Throttle,
		Workers:       cfg.Workers,
	}

	var client llm.Client
	switch cfg.LLMProvider {
	case "openai":
		client = llm.NewOpenAI(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	default:
		g, err := llm.NewGemini(ctx, cfg.LLMAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		client = g
	}
	log.Info().Str("search", provider.Name()).Str("llm", client.Name()).Msg("pipeline assembled")

	return &App{
		cfg:        cfg,
		retriever:  &search.Retriever{Provider: provider},
		aggregator: aggregator,
		synth:      &synth.Synthesizer{Client: client, Temperature: float32(cfg.Temperature)},
		Store:      report.NewStore(cfg.StoreCapacity),
	}, nil
}

// Research runs the full pipeline for one query. On synthesis failure the
// gathered sources are still returned alongside the error so callers can show
// what was collected.
func (a *App) Research(ctx context.Context, query string, depth search.Depth) (report.Report, []report.Source, error) {
	start := time.Now()
	log.Info().Str("query", query).Str("depth", string(depth)).Msg("processing query")

	hits := a.retriever.Retrieve(ctx, query, depth)
	if len(hits) == 0 {
		return report.Report{}, nil, ErrNoSearchResults
	}
	urls := make([]string, 0, len(hits))
	titles := make(map[string]string, len(hits))
	for _, h := range hits {
		urls = append(urls, h.URL)
		if h.Title != "" {
			titles[h.URL] = h.Title
		}
	}

	gathered := a.aggregator.Aggregate(ctx, urls)
	if len(gathered) == 0 {
		return report.Report{}, nil, ErrNoUsableContent
	}
	sources := presentSources(gathered, titles)

	out, err := a.synth.Synthesize(ctx, query, gathered, depth)
	if err != nil {
		return report.Report{}, sources, err
	}

	// The stored text is the citation-normalized form: the flowing renderer
	// walks it line by line, so grouped markers must already be split here.
	rep := report.Report{
		Query:   query,
		Raw:     out.Normalized,
		Markup:  out.Markup,
		Sources: sources,
		Depth:   depth,
	}
	log.Info().
		Str("query", query).
		Int("sources", len(sources)).
		Dur("elapsed", time.Since(start)).
		Msg("research complete")
	return rep, sources, nil
}

func presentSources(gathered []aggregate.Source, titles map[string]string) []report.Source {
	out := make([]report.Source, 0, len(gathered))
	for _, g := range gathered {
		title := titles[g.URL]
		if title == "" {
			title = g.Title
		}
		if title == "" {
			title = fmt.Sprintf("Source %d", g.Index+1)
		}
		out = append(out, report.Source{
			Index:   g.Index,
			URL:     g.URL,
			Title:   title,
			Preview: previewOf(g.Text),
		})
	}
	return out
}

func previewOf(text string) string {
	r := []rune(text)
	if len(r) <= SourcePreviewChars {
		return text
	}
	return string(r[:SourcePreviewChars])
}
