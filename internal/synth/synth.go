// Package synth invokes the model capability and normalizes every outcome
// into a closed failure taxonomy, so callers never see provider-specific
// error formats.
package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sageview/sageview/internal/aggregate"
	"github.com/sageview/sageview/internal/budget"
	"github.com/sageview/sageview/internal/cite"
	"github.com/sageview/sageview/internal/llm"
	"github.com/sageview/sageview/internal/prompt"
	"github.com/sageview/sageview/internal/search"
)

// Reason is the closed taxonomy of synthesis failures.
type Reason string

const (
	ReasonNoSources         Reason = "no_sources"
	ReasonTruncated         Reason = "truncated"
	ReasonSafetyBlocked     Reason = "safety_blocked"
	ReasonRecitationBlocked Reason = "recitation_blocked"
	ReasonEmptyResponse     Reason = "empty_response"
	ReasonAuth              Reason = "auth"
	ReasonRateLimited       Reason = "rate_limited"
	ReasonRegionRestricted  Reason = "region_restricted"
	ReasonContextTooLarge   Reason = "context_too_large"
	ReasonRenderFailed      Reason = "render_failed"
	ReasonUnknown           Reason = "unknown"
)

// Failure is a taxonomy reason with a human-readable message. It implements
// error so it threads through ordinary error returns.
type Failure struct {
	Reason  Reason
	Message string
}

func (f *Failure) Error() string { return f.Message }

// Output is a successful synthesis: the raw model text, the
// citation-normalized text, and the bound HTML markup.
type Output struct {
	Raw        string
	Normalized string
	Markup     string
}

// Generation bounds. Shallow answers get one generous call; deep articles are
// chunked along document boundaries to stay inside practical output budgets.
const (
	ShallowMaxTokens      int32   = 8192
	StructureChunkTokens  int32   = 2000
	AnalysisChunkTokens   int32   = 3000
	ConclusionChunkTokens int32   = 2000
	DefaultTemperature    float32 = 0.6
)

// Synthesizer produces a cited answer from accumulated sources.
type Synthesizer struct {
	Client      llm.Client
	Temperature float32 // zero means DefaultTemperature
}

// Synthesize runs the depth-appropriate generation strategy and returns
// normalized output, or a *Failure describing why no answer exists.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, sources []aggregate.Source, depth search.Depth) (Output, error) {
	if s == nil || s.Client == nil {
		return Output{}, &Failure{Reason: ReasonUnknown, Message: "synthesizer not configured"}
	}
	if len(sources) == 0 {
		return Output{}, &Failure{Reason: ReasonNoSources, Message: "No content to synthesize."}
	}

	contextStr := prompt.Context(sources)
	var raw string
	var err error
	if depth == search.DepthDeep {
		raw, err = s.deep(ctx, query, contextStr)
	} else {
		raw, err = s.shallow(ctx, query, contextStr, depth)
	}
	if err != nil {
		return Output{}, err
	}

	normalized, markup, err := cite.Normalize(raw)
	if err != nil {
		log.Error().Err(err).Msg("markup rendering failed")
		return Output{}, &Failure{Reason: ReasonRenderFailed, Message: "Failed to render the synthesized answer."}
	}
	log.Info().Int("raw_chars", len(raw)).Str("depth", string(depth)).Msg("synthesis complete")
	return Output{Raw: raw, Normalized: normalized, Markup: markup}, nil
}

func (s *Synthesizer) shallow(ctx context.Context, query, contextStr string, depth search.Depth) (string, error) {
	p := prompt.Build(query, contextStr, depth)
	log.Info().Int("est_tokens", budget.EstimateTokens(p)).Msg("sending synthesis prompt")
	resp, err := s.generate(ctx, p, ShallowMaxTokens)
	if err != nil {
		return "", err
	}
	if f := failureFromResponse(resp); f != nil {
		return "", f
	}
	return resp.Text, nil
}

// deep runs three sequential chunked invocations against the same source
// context. The first chunk failing fails the whole synthesis; failures of the
// later chunks degrade gracefully and return whatever was already produced.
func (s *Synthesizer) deep(ctx context.Context, query, contextStr string) (string, error) {
	structure, err := s.chunk(ctx, prompt.StructureChunk(query, contextStr), StructureChunkTokens)
	if err != nil {
		log.Error().Err(err).Msg("deep synthesis: structure chunk failed")
		return "", err
	}
	parts := []string{structure}

	if text, err := s.chunk(ctx, prompt.AnalysisChunk(query, contextStr), AnalysisChunkTokens); err != nil {
		log.Warn().Err(err).Msg("deep synthesis: analysis chunk failed; keeping earlier sections")
	} else {
		parts = append(parts, text)
	}

	if text, err := s.chunk(ctx, prompt.ConclusionChunk(query, contextStr), ConclusionChunkTokens); err != nil {
		log.Warn().Err(err).Msg("deep synthesis: conclusion chunk failed; keeping earlier sections")
	} else {
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *Synthesizer) chunk(ctx context.Context, p string, maxTokens int32) (string, error) {
	log.Debug().Int("est_tokens", budget.EstimateTokens(p)).Msg("sending chunk prompt")
	resp, err := s.generate(ctx, p, maxTokens)
	if err != nil {
		return "", err
	}
	if f := failureFromResponse(resp); f != nil {
		return "", f
	}
	return resp.Text, nil
}

func (s *Synthesizer) generate(ctx context.Context, p string, maxTokens int32) (llm.Response, error) {
	temp := s.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	resp, err := s.Client.Generate(ctx, llm.Request{
		Prompt:          p,
		MaxOutputTokens: maxTokens,
		Temperature:     temp,
	})
	if err != nil {
		return llm.Response{}, classifyTransportError(err)
	}
	return resp, nil
}

// failureFromResponse maps terminal generation conditions to the taxonomy.
// Truncated responses are treated as failures rather than partial answers
// because a cut-off cited article is worse than an explicit error.
func failureFromResponse(resp llm.Response) *Failure {
	switch resp.Finish {
	case llm.FinishMaxTokens:
		return &Failure{Reason: ReasonTruncated, Message: "AI response cut short."}
	case llm.FinishSafety:
		return &Failure{Reason: ReasonSafetyBlocked, Message: "Blocked by safety."}
	case llm.FinishRecitation:
		return &Failure{Reason: ReasonRecitationBlocked, Message: "Blocked (recitation)."}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return &Failure{Reason: ReasonEmptyResponse, Message: "AI returned empty response."}
	}
	return nil
}

// classifyTransportError pattern-matches provider error text into the closed
// taxonomy so callers need not understand provider-specific formats.
func classifyTransportError(err error) *Failure {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401"):
		return &Failure{Reason: ReasonAuth, Message: "Invalid AI API key."}
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") || strings.Contains(msg, "429"):
		return &Failure{Reason: ReasonRateLimited, Message: "AI model rate limit exceeded. Please try again later."}
	case strings.Contains(msg, "location is not supported") || strings.Contains(msg, "region"):
		return &Failure{Reason: ReasonRegionRestricted, Message: "AI model access restricted by location."}
	case strings.Contains(msg, "token limit") || strings.Contains(msg, "context length") || strings.Contains(msg, "exceeds the maximum"):
		return &Failure{Reason: ReasonContextTooLarge, Message: "Content too large for the AI model. Try quick mode or fewer sources."}
	default:
		return &Failure{Reason: ReasonUnknown, Message: fmt.Sprintf("AI communication error: %v", err)}
	}
}
