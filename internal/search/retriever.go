package search

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Depth selects how wide the retrieval and how long the synthesis should be.
type Depth string

const (
	DepthShallow Depth = "quick"
	DepthDeep    Depth = "deep"
)

// Result-count tiers per depth.
const (
	ShallowResultCount = 7
	DeepResultCount    = 18
)

// ResultCount maps a depth to its retrieval tier.
func ResultCount(d Depth) int {
	if d == DepthDeep {
		return DeepResultCount
	}
	return ShallowResultCount
}

// Retriever wraps a Provider and normalizes its behavior for the pipeline:
// result counts follow the declared depth, and provider errors or empty
// responses become an empty slice. Absence of results is a representable
// outcome here, not a failure; deciding "no sources" is the aggregator's job.
type Retriever struct {
	Provider Provider
}

func (r *Retriever) Retrieve(ctx context.Context, query string, depth Depth) []Result {
	if r == nil || r.Provider == nil {
		return nil
	}
	limit := ResultCount(depth)
	results, err := r.Provider.Search(ctx, query, limit)
	if err != nil {
		log.Warn().Err(err).Str("provider", r.Provider.Name()).Str("query", query).Msg("search failed; treating as empty")
		return nil
	}
	out := Normalize(results)
	log.Info().Int("count", len(out)).Str("provider", r.Provider.Name()).Str("query", query).Msg("search results")
	return out
}
