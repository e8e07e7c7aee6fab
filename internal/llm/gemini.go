package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// Gemini adapts the Gemini API to the Client interface. Safety thresholds are
// fixed at BLOCK_MEDIUM_AND_ABOVE across the four harm categories.
type Gemini struct {
	Client *genai.Client
	Model  string
}

// NewGemini builds a Gemini-backed client for the given model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{Client: client, Model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

var geminiSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
}

func (g *Gemini) Generate(ctx context.Context, req Request) (Response, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: req.MaxOutputTokens,
		Temperature:     genai.Ptr(req.Temperature),
		SafetySettings:  geminiSafetySettings,
	}
	resp, err := g.Client.Models.GenerateContent(
		ctx,
		g.Model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return Response{}, err
	}

	// A prompt-level block arrives with no candidates at all.
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return Response{Finish: FinishSafety}, nil
		}
		return Response{Finish: FinishOther}, nil
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return Response{Text: sb.String(), Finish: mapGeminiFinish(cand.FinishReason)}, nil
}

func mapGeminiFinish(r genai.FinishReason) FinishReason {
	switch r {
	case genai.FinishReasonStop, genai.FinishReasonUnspecified:
		return FinishStop
	case genai.FinishReasonMaxTokens:
		return FinishMaxTokens
	case genai.FinishReasonSafety:
		return FinishSafety
	case genai.FinishReasonRecitation:
		return FinishRecitation
	default:
		return FinishOther
	}
}
