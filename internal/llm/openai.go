package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI adapts any OpenAI-compatible chat endpoint to the Client interface,
// which keeps local backends usable behind the same pipeline.
type OpenAI struct {
	Inner *openai.Client
	Model string
}

// NewOpenAI builds a client against an OpenAI-compatible server. baseURL may
// be empty for the hosted default.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{Inner: openai.NewClientWithConfig(cfg), Model: model}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := o.Inner.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   int(req.MaxOutputTokens),
		Temperature: req.Temperature,
		N:           1,
	})
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{Finish: FinishOther}, nil
	}
	choice := resp.Choices[0]
	return Response{Text: choice.Message.Content, Finish: mapOpenAIFinish(choice.FinishReason)}, nil
}

func mapOpenAIFinish(r openai.FinishReason) FinishReason {
	switch r {
	case openai.FinishReasonStop, openai.FinishReasonNull:
		return FinishStop
	case openai.FinishReasonLength:
		return FinishMaxTokens
	case openai.FinishReasonContentFilter:
		return FinishSafety
	default:
		return FinishOther
	}
}
