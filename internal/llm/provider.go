// Package llm defines the minimal model capability the pipeline depends on,
// so any backend can be adapted without the synthesizer knowing provider
// specifics.
package llm

import "context"

// FinishReason is the normalized terminal condition of a generation call.
type FinishReason string

const (
	FinishStop       FinishReason = "stop"
	FinishMaxTokens  FinishReason = "max_tokens"
	FinishSafety     FinishReason = "safety"
	FinishRecitation FinishReason = "recitation"
	FinishOther      FinishReason = "other"
)

// Request carries one prompt and its generation bounds.
type Request struct {
	Prompt          string
	MaxOutputTokens int32
	Temperature     float32
}

// Response is the model output with its normalized finish reason. Text may be
// empty when the call terminated without producing content.
type Response struct {
	Text   string
	Finish FinishReason
}

// Client is the single capability the synthesizer calls. Implementations
// normalize their provider's finish/block signals into FinishReason and
// return transport-level problems as errors.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}
